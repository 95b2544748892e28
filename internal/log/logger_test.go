// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestReconfigure_WritesServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "debug", Output: &buf, Service: "ytrelay-test", Version: "v0.0.1"})
	t.Cleanup(func() { Reconfigure(Config{Level: "info"}) })

	l := WithComponent("jobs")
	l.Debug().Str(FieldEvent, "job.created").Msg("created")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	for key, want := range map[string]string{
		"service":      "ytrelay-test",
		"version":      "v0.0.1",
		FieldComponent: "jobs",
		FieldEvent:     "job.created",
		"level":        "debug",
	} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %s", key, entry[key], want)
		}
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("global level = %v, want debug", zerolog.GlobalLevel())
	}
}

func TestConfigure_IgnoredAfterReconfigure(t *testing.T) {
	var first, second bytes.Buffer
	Reconfigure(Config{Output: &first})
	t.Cleanup(func() { Reconfigure(Config{Level: "info"}) })

	Configure(Config{Output: &second})
	L().Info().Msg("routed")

	if first.Len() == 0 {
		t.Error("expected output on the reconfigured writer")
	}
	if second.Len() != 0 {
		t.Error("Configure must not replace an already configured logger")
	}
}
