package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cliNow = time.Date(2025, time.March, 10, 18, 30, 0, 0, time.UTC)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-12-31", time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)},
		{"7d", time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)},
		{"0d", time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)},
		{"365d", time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDate(tt.in, cliNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "d", "xd", "-3d", "03/10/2025"} {
		_, err := parseDate(in, cliNow)
		assert.Error(t, err, in)
	}
}

func TestParseRange(t *testing.T) {
	rng, err := parseRange("2025-01-01", "", cliNow)
	require.NoError(t, err)
	require.NotNil(t, rng.Start)
	assert.Nil(t, rng.End)

	_, err = parseRange("2025-02-01", "2025-01-01", cliNow)
	assert.ErrorContains(t, err, "before")

	_, err = parseRange("", "soon", cliNow)
	assert.ErrorContains(t, err, "--end")
}
