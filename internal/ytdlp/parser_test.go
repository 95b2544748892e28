// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ytdlp

import (
	"bufio"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want Event
	}{
		{"[download]  42.5% of 10.00MiB at 1.00MiB/s ETA 00:05", Event{Progress: 42.5, HasProgress: true}},
		{"[download] 100% of 10.00MiB", Event{Progress: 100, HasProgress: true}},
		{"[download]   7.% of ~", Event{Progress: 7, HasProgress: true}},
		{"[download] Destination: downloads/Chan_2024-01-01_T_DL-2025-01-01-00-00.mp4", Event{Filename: "Chan_2024-01-01_T_DL-2025-01-01-00-00.mp4"}},
		{"[download] Destination: downloads/50%_off.mp4", Event{Filename: "50%_off.mp4"}},
		{`[download] Destination: C:\dl\win.webm`, Event{Filename: "win.webm"}},
		{"[ExtractAudio] Destination: downloads/song.mp3", Event{Filename: "song.mp3"}},
		{`[Merger] Merging formats into "downloads/merged.mp4"`, Event{Filename: "merged.mp4"}},
		{"[download] downloads/old.mp4 has already been downloaded", Event{Filename: "old.mp4"}},
		{"[youtube] abc: Downloading webpage", Event{}},
		{"", Event{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLine(tt.line), tt.line)
	}
}

func TestScanLines_SplitsOnCarriageReturn(t *testing.T) {
	s := bufio.NewScanner(strings.NewReader("a\rb\nc\r\nd"))
	s.Split(ScanLines)
	var got []string
	for s.Scan() {
		got = append(got, s.Text())
	}
	require.NoError(t, s.Err())
	assert.Equal(t, []string{"a", "b", "c", "", "d"}, got)
}

func TestParse_ProgressThenDestination(t *testing.T) {
	out := "[youtube] x: Downloading\n" +
		"[download]  10.0% of 1MiB\r[download]  42.5% of 1MiB\r" +
		"[download] Destination: downloads/Final_Name.mp4\n"

	// one byte per read: tokens straddle every read boundary
	var progress float64
	var filename string
	err := Parse(iotest.OneByteReader(strings.NewReader(out)), func(ev Event) {
		if ev.HasProgress {
			progress = ev.Progress
		}
		if ev.Filename != "" {
			filename = ev.Filename
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 42.5, progress)
	assert.Equal(t, "Final_Name.mp4", filename)
}

func TestParse_ProgressIsSeenInOrder(t *testing.T) {
	var seen []float64
	err := Parse(strings.NewReader("1.0%\r5.5%\r33%\r100%\n"), func(ev Event) {
		seen = append(seen, ev.Progress)
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 5.5, 33, 100}, seen)
}

func TestParse_LineTooLong(t *testing.T) {
	long := strings.Repeat("x", maxLineBytes+10)
	err := Parse(strings.NewReader(long), func(Event) {})
	assert.ErrorIs(t, err, bufio.ErrTooLong)
}

func TestRingBuffer(t *testing.T) {
	r := NewRingBuffer(3)
	assert.Empty(t, r.Lines())
	r.Add("a")
	r.Add("b")
	assert.Equal(t, []string{"a", "b"}, r.Lines())
	r.Add("c")
	r.Add("d")
	assert.Equal(t, []string{"b", "c", "d"}, r.Lines())
}
