// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ytdlp

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// VideoInfo is the metadata returned by the video-info endpoint.
type VideoInfo struct {
	ID                 string           `json:"id,omitempty"`
	Title              string           `json:"title,omitempty"`
	Channel            string           `json:"channel,omitempty"`
	Duration           string           `json:"duration"`
	Thumbnail          string           `json:"thumbnail,omitempty"`
	UploadDate         string           `json:"uploadDate"`
	Description        string           `json:"description,omitempty"`
	ViewCount          string           `json:"viewCount"`
	AvailableFormats   []DownloadFormat `json:"availableFormats"`
	IsSubscriptionOnly bool             `json:"isSubscriptionOnly"`
}

// DownloadFormat is one entry of the quality picker.
type DownloadFormat struct {
	Quality  string `json:"quality"`
	Format   string `json:"format"`
	FileSize string `json:"fileSize"`
	FPS      int    `json:"fps,omitempty"`
	Bitrate  string `json:"bitrate,omitempty"`
}

// standardFormats are offered when the video has a matching height.
var standardFormats = []DownloadFormat{
	{Quality: "2160p", Format: FormatMP4, FileSize: "~2.1 GB", FPS: 60},
	{Quality: "1440p", Format: FormatMP4, FileSize: "~1.2 GB", FPS: 60},
	{Quality: "1080p", Format: FormatMP4, FileSize: "~800 MB", FPS: 60},
	{Quality: "720p", Format: FormatMP4, FileSize: "~400 MB", FPS: 30},
	{Quality: "480p", Format: FormatMP4, FileSize: "~250 MB", FPS: 30},
	{Quality: "audio", Format: FormatMP3, FileSize: "~8 MB", Bitrate: "128kbps"},
}

// rawInfo is the subset of yt-dlp --dump-json output we read.
type rawInfo struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Uploader    string      `json:"uploader"`
	Channel     string      `json:"channel"`
	Duration    float64     `json:"duration"`
	Thumbnail   string      `json:"thumbnail"`
	UploadDate  string      `json:"upload_date"`
	Description string      `json:"description"`
	ViewCount   int64       `json:"view_count"`
	Formats     []rawFormat `json:"formats"`
}

type rawFormat struct {
	Height *int `json:"height"`
}

// ParseVideoInfo decodes yt-dlp JSON and maps it to VideoInfo.
func ParseVideoInfo(data []byte) (VideoInfo, error) {
	var raw rawInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return VideoInfo{}, err
	}
	channel := raw.Uploader
	if channel == "" {
		channel = raw.Channel
	}
	heights := make([]int, 0, len(raw.Formats))
	for _, f := range raw.Formats {
		if f.Height != nil && *f.Height != 0 {
			heights = append(heights, *f.Height)
		}
	}
	return VideoInfo{
		ID:                 raw.ID,
		Title:              raw.Title,
		Channel:            channel,
		Duration:           FormatDuration(raw.Duration),
		Thumbnail:          raw.Thumbnail,
		UploadDate:         FormatUploadDate(raw.UploadDate),
		Description:        raw.Description,
		ViewCount:          FormatViewCount(raw.ViewCount),
		AvailableFormats:   AvailableFormats(heights),
		IsSubscriptionOnly: false,
	}, nil
}

// FormatDuration renders seconds as m:ss, or 0:00 when unknown.
func FormatDuration(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) {
		return "0:00"
	}
	minutes := int64(math.Floor(seconds / 60))
	secs := strconv.FormatFloat(math.Mod(seconds, 60), 'f', -1, 64)
	if len(secs) < 2 {
		secs = strings.Repeat("0", 2-len(secs)) + secs
	}
	return fmt.Sprintf("%d:%s", minutes, secs)
}

// FormatUploadDate turns yt-dlp's YYYYMMDD into YYYY-MM-DD.
func FormatUploadDate(date string) string {
	if date == "" {
		return DefaultUploadDate
	}
	return substr(date, 0, 4) + "-" + substr(date, 4, 6) + "-" + substr(date, 6, 8)
}

func substr(s string, from, to int) string {
	if from > len(s) {
		return ""
	}
	if to > len(s) {
		to = len(s)
	}
	return s[from:to]
}

var viewPrinter = message.NewPrinter(language.English)

// FormatViewCount renders "1,234 views", or "Unknown views" when zero.
func FormatViewCount(n int64) string {
	if n == 0 {
		return "Unknown views"
	}
	return viewPrinter.Sprintf("%d views", n)
}

// AvailableFormats filters the standard picker entries by the heights the
// video offers. Audio is always offered; when no heights are known every
// entry is returned.
func AvailableFormats(heights []int) []DownloadFormat {
	available := make(map[string]struct{}, len(heights))
	for _, h := range heights {
		available[strconv.Itoa(h)+"p"] = struct{}{}
	}
	out := make([]DownloadFormat, 0, len(standardFormats))
	for _, f := range standardFormats {
		_, ok := available[f.Quality]
		if f.Quality == "audio" || ok || len(available) == 0 {
			out = append(out, f)
		}
	}
	return out
}
