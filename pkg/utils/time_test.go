package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow(t *testing.T) {
	now := Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.WithinDuration(t, time.Now(), now, time.Second)
}

func TestFormatISO8601(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	ts := time.Date(2026, 4, 2, 17, 30, 0, 0, loc)
	assert.Equal(t, "2026-04-02T10:30:00Z", FormatISO8601(ts))
}

func TestFormatOptional(t *testing.T) {
	assert.Equal(t, "Never", FormatOptional(nil, "Never"))
	assert.Equal(t, "-", FormatOptional(&time.Time{}, "-"))

	ts := time.Date(2026, 4, 2, 10, 30, 5, 0, time.UTC)
	assert.Equal(t, "2026-04-02 10:30:05", FormatOptional(&ts, "Never"))
}
