package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// aptAt builds an appointment snapshot for the given start instant.
func aptAt(start time.Time, paid bool) Appointment {
	return Appointment{
		SlotDate: SlotKey(start),
		SlotTime: FormatSlotTime(start),
		Amount:   50,
		Payment:  paid,
	}
}

func TestClassify_Idempotent(t *testing.T) {
	now := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)
	apt := aptAt(now.Add(10*time.Minute), true)

	first, err := Classify(apt, now)
	require.NoError(t, err)
	second, err := Classify(apt, now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestClassify_CancelledIsTerminal(t *testing.T) {
	now := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)

	// Even a live, paid appointment with the call flag raised stays
	// Cancelled.
	apt := aptAt(now, true)
	apt.Cancelled = true
	apt.VideoCallActive = true

	s, err := Classify(apt, now)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, s.Status)
	assert.False(t, s.IsLive)
	assert.False(t, s.IsCallAvailable)
}

func TestClassify_CompletedIsTerminal(t *testing.T) {
	now := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)

	apt := aptAt(now, true)
	apt.IsCompleted = true
	apt.VideoCallActive = true

	s, err := Classify(apt, now)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s.Status)
	assert.False(t, s.IsCallAvailable)
}

func TestClassify_LiveWindowBoundaries(t *testing.T) {
	start := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)
	apt := aptAt(start, true)

	cases := []struct {
		name string
		now  time.Time
		live bool
	}{
		{"15 minutes before", start.Add(-15 * time.Minute), true},
		{"15 minutes after", start.Add(15 * time.Minute), true},
		{"just outside before", start.Add(-15*time.Minute - time.Second), false},
		{"just outside after", start.Add(15*time.Minute + time.Second), false},
		{"at start", start, true},
	}

	for _, tc := range cases {
		s, err := Classify(apt, tc.now)
		require.NoError(t, err)
		assert.Equal(t, tc.live, s.IsLive, tc.name)
	}
}

func TestClassify_CallAvailabilityWindow(t *testing.T) {
	start := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)
	apt := aptAt(start, true)

	cases := []struct {
		name      string
		now       time.Time
		available bool
	}{
		{"30 minutes before", start.Add(-30 * time.Minute), true},
		{"60 minutes after", start.Add(60 * time.Minute), true},
		{"31 minutes before", start.Add(-31 * time.Minute), false},
		{"61 minutes after", start.Add(61 * time.Minute), false},
	}

	for _, tc := range cases {
		s, err := Classify(apt, tc.now)
		require.NoError(t, err)
		assert.Equal(t, tc.available, s.IsCallAvailable, tc.name)
	}
}

func TestClassify_PaidLiveAppointment(t *testing.T) {
	// Scenario: appointment today, ten minutes out, paid.
	now := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)
	apt := aptAt(now.Add(10*time.Minute), true)

	s, err := Classify(apt, now)
	require.NoError(t, err)
	assert.Equal(t, StatusVideoCallActive, s.Status)
	assert.True(t, s.IsCallAvailable)
	assert.True(t, s.IsLive)
	assert.True(t, s.IsPaid)
}

func TestClassify_YesterdayIsMissed(t *testing.T) {
	now := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)
	apt := aptAt(now.AddDate(0, 0, -1), false)

	s, err := Classify(apt, now)
	require.NoError(t, err)
	assert.Equal(t, StatusMissed, s.Status)
	assert.False(t, s.IsFuture)
}

func TestClassify_EarlierTodayUnpaidIsMissed(t *testing.T) {
	now := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)
	apt := aptAt(now.Add(-45*time.Minute), false)

	s, err := Classify(apt, now)
	require.NoError(t, err)
	assert.Equal(t, StatusMissed, s.Status)
	// The call window is still open; joining is gated on payment by
	// the caller, not here.
	assert.True(t, s.IsCallAvailable)
	assert.False(t, s.IsPaid)
}

func TestClassify_TodayLaterOn(t *testing.T) {
	now := time.Date(2025, time.June, 5, 9, 0, 0, 0, time.UTC)
	apt := aptAt(now.Add(5*time.Hour), true)

	s, err := Classify(apt, now)
	require.NoError(t, err)
	assert.Equal(t, StatusToday, s.Status)
	assert.True(t, s.IsFuture)
}

func TestClassify_UnpaidFutureStillUpcoming(t *testing.T) {
	// Payment never blocks the Today/Upcoming labels.
	now := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)
	apt := aptAt(now.AddDate(0, 0, 3), false)

	s, err := Classify(apt, now)
	require.NoError(t, err)
	assert.Equal(t, StatusUpcoming, s.Status)
	assert.False(t, s.IsPaid)
	assert.True(t, s.IsFuture)
}

func TestClassify_VideoCallFlagIsAuthoritative(t *testing.T) {
	// The externally-confirmed flag wins even outside the live window.
	now := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)
	apt := aptAt(now.Add(4*time.Hour), true)
	apt.VideoCallActive = true

	s, err := Classify(apt, now)
	require.NoError(t, err)
	assert.Equal(t, StatusVideoCallActive, s.Status)
	assert.False(t, s.IsLive)
}

func TestClassify_MalformedDatePropagates(t *testing.T) {
	now := time.Date(2025, time.June, 5, 14, 0, 0, 0, time.UTC)
	apt := Appointment{SlotDate: "not_a_date", SlotTime: "10:30 AM"}

	_, err := Classify(apt, now)
	require.Error(t, err)

	var malformed *MalformedDateError
	assert.True(t, errors.As(err, &malformed))
}
