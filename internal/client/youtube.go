// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import (
	"fmt"
	"regexp"
	"strings"
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/v/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/live/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`music\.youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`),
}

var playlistIDPattern = regexp.MustCompile(`[?&]list=([a-zA-Z0-9_-]+)`)

// ExtractVideoID returns the 11-character id from watch, youtu.be, shorts,
// embed, v, live and music URLs.
func ExtractVideoID(u string) (string, bool) {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(u); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ExtractPlaylistID returns the list= parameter.
func ExtractPlaylistID(u string) (string, bool) {
	if m := playlistIDPattern.FindStringSubmatch(u); m != nil {
		return m[1], true
	}
	return "", false
}

// WatchURL is the canonical URL the relay is asked to fetch.
func WatchURL(id string) string {
	return "https://youtube.com/watch?v=" + id
}

// ValidateCookies reports whether text looks like an exported YouTube
// session: it must name VISITOR_INFO1_LIVE or LOGIN_INFO.
func ValidateCookies(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return strings.Contains(text, "VISITOR_INFO1_LIVE") || strings.Contains(text, "LOGIN_INFO")
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatFileSize renders bytes with one decimal in binary units.
func FormatFileSize(bytes float64) string {
	size := bytes
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", size, sizeUnits[unit])
}

// QualityBadge is the short label shown next to a quality.
func QualityBadge(quality string) string {
	switch quality {
	case "2160p":
		return "4K"
	case "1440p":
		return "2K"
	case "1080p":
		return "FHD"
	case "720p":
		return "HD"
	case "480p":
		return "SD"
	case "audio":
		return "MP3"
	default:
		return quality
	}
}
