// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ytdlp drives the yt-dlp command line tool: argument construction,
// output naming, progress parsing and metadata extraction.
package ytdlp

import (
	"errors"
	"strings"
)

// Supported output formats.
const (
	FormatMP4 = "mp4"
	FormatMP3 = "mp3"
)

// QualityBest selects the best available mp4 without a height cap.
const QualityBest = "best"

// ErrInvalidFormat is returned for formats other than mp4 and mp3.
var ErrInvalidFormat = errors.New("invalid format")

// ValidateFormat accepts exactly "mp4" and "mp3".
func ValidateFormat(format string) error {
	if format == FormatMP4 || format == FormatMP3 {
		return nil
	}
	return ErrInvalidFormat
}

// FormatSelector builds the --format expression.
//
//	mp3            -> bestaudio/best
//	mp4, "best"    -> best[ext=mp4]
//	mp4, "720p"    -> best[height<=720][ext=mp4]/best[ext=mp4]
//
// Quality is not validated; only the first "p" is removed. An empty quality
// behaves like "best".
func FormatSelector(format, quality string) string {
	if format == FormatMP3 {
		return "bestaudio/best"
	}
	if quality == "" || quality == QualityBest {
		return "best[ext=mp4]"
	}
	height := strings.Replace(quality, "p", "", 1)
	return "best[height<=" + height + "][ext=mp4]/best[ext=mp4]"
}

// DownloadArgs builds the argument list for a download run.
func DownloadArgs(url, format, quality, output, cookieFile string) []string {
	args := []string{
		url,
		"--format", FormatSelector(format, quality),
		"--output", output,
		"--no-playlist",
	}
	if format == FormatMP3 {
		args = append(args, "--extract-audio", "--audio-format", "mp3")
	}
	if cookieFile != "" {
		args = append(args, "--cookies", cookieFile)
	}
	return args
}

// InfoArgs builds the argument list for a metadata lookup.
func InfoArgs(url, cookieFile string) []string {
	args := []string{url, "--dump-json", "--no-playlist"}
	if cookieFile != "" {
		args = append(args, "--cookies", cookieFile)
	}
	return args
}
