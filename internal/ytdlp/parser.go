// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ytdlp

import (
	"bufio"
	"bytes"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const maxLineBytes = 1 << 20

var (
	progressPattern = regexp.MustCompile(`(\d+\.?\d*)%`)

	destinationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\[download\] Destination: (.+)`),
		regexp.MustCompile(`\[ExtractAudio\] Destination: (.+)`),
		regexp.MustCompile(`\[Merger\] Merging formats into "(.+)"`),
		regexp.MustCompile(`\[download\] (.+) has already been downloaded`),
	}
)

// Event is what a single output line tells us about a run.
type Event struct {
	Progress    float64
	HasProgress bool
	Filename    string // final path component of a reported destination
}

// Empty reports whether the line carried nothing of interest.
func (e Event) Empty() bool {
	return !e.HasProgress && e.Filename == ""
}

// ParseLine extracts a progress percentage or a destination file name from
// one line of yt-dlp output. Destination lines are not scanned for a
// percentage, since file names may legitimately contain one.
func ParseLine(line string) Event {
	line = strings.TrimRight(line, "\r\n")
	for _, re := range destinationPatterns {
		if m := re.FindStringSubmatch(line); m != nil {
			return Event{Filename: baseName(m[1])}
		}
	}
	if m := progressPattern.FindStringSubmatch(line); m != nil {
		if p, err := strconv.ParseFloat(m[1], 64); err == nil {
			return Event{Progress: p, HasProgress: true}
		}
	}
	return Event{}
}

// baseName handles both separators since yt-dlp may print Windows paths.
func baseName(path string) string {
	path = strings.TrimSpace(path)
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	return filepath.Base(path)
}

// ScanLines is a bufio.SplitFunc that ends a line at '\n' or '\r'.
// yt-dlp redraws its progress line with carriage returns, so splitting on
// both yields one token per update. Tokens are reassembled across reads,
// which means a percentage split between two pipe reads is still seen whole.
func ScanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Parse reads r to the end and calls fn for every line that carried an
// event. If a line exceeds the scanner limit the rest of r is drained so the
// writer never blocks, and bufio.ErrTooLong is returned.
func Parse(r io.Reader, fn func(Event)) error {
	return scan(r, func(line string) {
		if ev := ParseLine(line); !ev.Empty() {
			fn(ev)
		}
	})
}

func scan(r io.Reader, fn func(line string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	scanner.Split(ScanLines)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}
