// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ytdlp

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultChannel is used when no channel name is supplied.
	DefaultChannel = "Unknown"
	// DefaultTitle is used when no title is supplied.
	DefaultTitle = "Video"
	// DefaultUploadDate is used when no usable upload date is supplied.
	DefaultUploadDate = "2025-01-15"

	maxChannelLen = 50
	maxTitleLen   = 100

	downloadStampLayout = "2006-01-02-15-04"
)

var (
	isoDate     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	compactDate = regexp.MustCompile(`^\d{8}$`)
)

// Clean makes s safe for a file name. It drops everything except ASCII
// letters, digits, underscore, hyphen and whitespace, turns each whitespace
// run into a single underscore and cuts the result to max characters.
// Whitespace follows the ECMAScript definition, so non-breaking and other
// Unicode spaces count. The result only holds ASCII, which makes Clean
// idempotent.
func Clean(s string, max int) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		switch {
		case isWordRune(r) || r == '-':
			b.WriteRune(r)
			inSpace = false
		case isJSSpace(r):
			if !inSpace {
				b.WriteByte('_')
				inSpace = true
			}
		default:
			// dropped characters do not split a whitespace run
		}
	}
	out := b.String()
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// CleanChannel cleans a channel name, defaulting to "Unknown".
func CleanChannel(channel string) string {
	if channel == "" {
		channel = DefaultChannel
	}
	return Clean(channel, maxChannelLen)
}

// CleanTitle cleans a video title, defaulting to "Video".
func CleanTitle(title string) string {
	if title == "" {
		title = DefaultTitle
	}
	return Clean(title, maxTitleLen)
}

// NormalizeUploadDate returns YYYY-MM-DD. Compact YYYYMMDD values are
// expanded; anything else yields the default date so caller input never
// reaches the file system unchecked.
func NormalizeUploadDate(date string) string {
	switch {
	case isoDate.MatchString(date):
		return date
	case compactDate.MatchString(date):
		return date[0:4] + "-" + date[4:6] + "-" + date[6:8]
	default:
		return DefaultUploadDate
	}
}

// DownloadStamp formats the download time as YYYY-MM-DD-HH-MM in UTC.
func DownloadStamp(now time.Time) string {
	return now.UTC().Format(downloadStampLayout)
}

// BaseName builds {Channel}_{UploadDate}_{Title}_DL-{Stamp} without extension.
func BaseName(channel, title, uploadDate string, now time.Time) string {
	return CleanChannel(channel) + "_" +
		NormalizeUploadDate(uploadDate) + "_" +
		CleanTitle(title) + "_DL-" +
		DownloadStamp(now)
}

// FileName is BaseName with the given extension.
func FileName(channel, title, uploadDate, ext string, now time.Time) string {
	return BaseName(channel, title, uploadDate, now) + "." + ext
}

// OutputTemplate returns the --output value: dir/BaseName.%(ext)s, letting
// yt-dlp fill in the real container extension.
func OutputTemplate(dir, channel, title, uploadDate string, now time.Time) string {
	return filepath.Join(dir, BaseName(channel, title, uploadDate, now)+".%(ext)s")
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// isJSSpace matches the ECMAScript \s class.
func isJSSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		'\u00a0', '\u1680', '\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}
