package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlotDate(t *testing.T) {
	day, month, year, err := ParseSlotDate("5_6_2025")
	require.NoError(t, err)
	assert.Equal(t, 5, day)
	assert.Equal(t, 6, month)
	assert.Equal(t, 2025, year)

	day, month, year, err = ParseSlotDate("28_12_2025")
	require.NoError(t, err)
	assert.Equal(t, 28, day)
	assert.Equal(t, 12, month)
	assert.Equal(t, 2025, year)
}

func TestParseSlotDate_Malformed(t *testing.T) {
	cases := []string{
		"",
		"5_6",
		"5_6_2025_1",
		"a_6_2025",
		"5_b_2025",
		"5-6-2025",
		"5_6_25",
		"5_6_202500",
		"0_6_2025",
		"32_6_2025",
		"5_13_2025",
	}

	for _, input := range cases {
		_, _, _, err := ParseSlotDate(input)
		require.Error(t, err, "input %q", input)

		var malformed *MalformedDateError
		assert.True(t, errors.As(err, &malformed), "input %q should yield MalformedDateError", input)
	}
}

func TestParseSlotTime(t *testing.T) {
	clock, err := ParseSlotTime("10:30 AM")
	require.NoError(t, err)
	assert.Equal(t, 10, clock.Hour())
	assert.Equal(t, 30, clock.Minute())

	clock, err = ParseSlotTime("9:00 pm")
	require.NoError(t, err)
	assert.Equal(t, 21, clock.Hour())

	clock, err = ParseSlotTime("12:00 AM")
	require.NoError(t, err)
	assert.Equal(t, 0, clock.Hour())

	_, err = ParseSlotTime("25:00")
	assert.Error(t, err)
}

func TestSlotInstant(t *testing.T) {
	instant, err := SlotInstant("5_6_2025", "10:30 AM", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 5, 10, 30, 0, 0, time.UTC), instant)

	instant, err = SlotInstant("5_6_2025", "08:00 PM", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 20, instant.Hour())

	_, err = SlotInstant("5_6_2025", "soon", time.UTC)
	var malformed *MalformedDateError
	assert.True(t, errors.As(err, &malformed))
}

func TestSlotKey_RoundTrip(t *testing.T) {
	instant := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)
	key := SlotKey(instant)
	assert.Equal(t, "5_6_2025", key)

	day, month, year, err := ParseSlotDate(key)
	require.NoError(t, err)
	assert.Equal(t, instant.Day(), day)
	assert.Equal(t, int(instant.Month()), month)
	assert.Equal(t, instant.Year(), year)
}

func TestFormatSlotTime_Padded(t *testing.T) {
	assert.Equal(t, "09:00 AM", FormatSlotTime(time.Date(2025, time.June, 5, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, "12:30 PM", FormatSlotTime(time.Date(2025, time.June, 5, 12, 30, 0, 0, time.UTC)))
	assert.Equal(t, "08:00 PM", FormatSlotTime(time.Date(2025, time.June, 5, 20, 0, 0, 0, time.UTC)))
}
