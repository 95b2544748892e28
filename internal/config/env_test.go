// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	t.Setenv("YTRELAY_TEST_STRING", "from-env")
	t.Setenv("YTRELAY_TEST_EMPTY", "")

	assert.Equal(t, "from-env", ParseString("YTRELAY_TEST_STRING", "default"))
	assert.Equal(t, "default", ParseString("YTRELAY_TEST_EMPTY", "default"))
	assert.Equal(t, "default", ParseString("YTRELAY_TEST_UNSET_STRING", "default"))
}

func TestParseStringList(t *testing.T) {
	t.Setenv("YTRELAY_TEST_LIST", " http://a.example , ,http://b.example")
	t.Setenv("YTRELAY_TEST_LIST_BLANK", " , ")

	assert.Equal(t, []string{"http://a.example", "http://b.example"}, ParseStringList("YTRELAY_TEST_LIST", nil))
	assert.Equal(t, []string{"*"}, ParseStringList("YTRELAY_TEST_LIST_BLANK", []string{"*"}))
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{name: "valid", value: "12", want: 12},
		{name: "whitespace", value: " 7 ", want: 7},
		{name: "invalid falls back", value: "lots", want: 4},
		{name: "empty falls back", value: "", want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("YTRELAY_TEST_INT", tt.value)
			assert.Equal(t, tt.want, ParseInt("YTRELAY_TEST_INT", 4))
		})
	}
}

func TestParseDuration(t *testing.T) {
	t.Setenv("YTRELAY_TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, ParseDuration("YTRELAY_TEST_DUR", time.Hour))

	t.Setenv("YTRELAY_TEST_DUR", "soon")
	assert.Equal(t, time.Hour, ParseDuration("YTRELAY_TEST_DUR", time.Hour))
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true}, {"YES", true}, {"1", true},
		{"false", false}, {"no", false}, {"0", false},
		{"maybe", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("YTRELAY_TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, ParseBool("YTRELAY_TEST_BOOL", true))
		})
	}
}

func TestParseFloat(t *testing.T) {
	t.Setenv("YTRELAY_TEST_FLOAT", "0.25")
	assert.InDelta(t, 0.25, ParseFloat("YTRELAY_TEST_FLOAT", 1), 1e-9)

	t.Setenv("YTRELAY_TEST_FLOAT", "half")
	assert.InDelta(t, 1.0, ParseFloat("YTRELAY_TEST_FLOAT", 1), 1e-9)
}
