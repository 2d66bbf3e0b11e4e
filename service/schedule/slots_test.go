package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailableSlots_UnavailableDoctor(t *testing.T) {
	now := time.Date(2025, time.June, 5, 9, 0, 0, 0, time.UTC)
	doc := DoctorSchedule{
		Available: false,
		SlotsBooked: map[string][]string{
			"5_6_2025": {"10:00 AM"},
		},
	}

	groups := AvailableSlots(doc, now, DefaultSlotOptions())
	assert.Empty(t, groups)
}

func TestAvailableSlots_ExcludesBookedTimes(t *testing.T) {
	now := time.Date(2025, time.June, 5, 9, 0, 0, 0, time.UTC)
	doc := DoctorSchedule{
		Available: true,
		SlotsBooked: map[string][]string{
			"5_6_2025": {"10:00 AM"},
		},
	}

	groups := AvailableSlots(doc, now, DefaultSlotOptions())
	require.NotEmpty(t, groups)
	require.Equal(t, "5_6_2025", groups[0].Key)

	times := make([]string, 0, len(groups[0].Slots))
	for _, slot := range groups[0].Slots {
		times = append(times, slot.Time)
	}
	assert.NotContains(t, times, "10:00 AM")
	assert.Contains(t, times, "10:30 AM")
}

func TestAvailableSlots_StartsTomorrowNearClose(t *testing.T) {
	// 20:30 with a 21:00 close: within an hour of closing, so the
	// first group is tomorrow.
	now := time.Date(2025, time.June, 5, 20, 30, 0, 0, time.UTC)
	doc := DoctorSchedule{Available: true}

	groups := AvailableSlots(doc, now, DefaultSlotOptions())
	require.NotEmpty(t, groups)
	assert.Equal(t, "6_6_2025", groups[0].Key)
	assert.Equal(t, "10:00 AM", groups[0].Slots[0].Time)
}

func TestAvailableSlots_FirstDayOpensAnHourOut(t *testing.T) {
	doc := DoctorSchedule{Available: true}

	// 13:15 -> 14:00.
	now := time.Date(2025, time.June, 5, 13, 15, 0, 0, time.UTC)
	groups := AvailableSlots(doc, now, DefaultSlotOptions())
	require.NotEmpty(t, groups)
	assert.Equal(t, "02:00 PM", groups[0].Slots[0].Time)

	// 13:45 -> 14:30.
	now = time.Date(2025, time.June, 5, 13, 45, 0, 0, time.UTC)
	groups = AvailableSlots(doc, now, DefaultSlotOptions())
	require.NotEmpty(t, groups)
	assert.Equal(t, "02:30 PM", groups[0].Slots[0].Time)

	// Early morning never opens before startHour.
	now = time.Date(2025, time.June, 5, 6, 0, 0, 0, time.UTC)
	groups = AvailableSlots(doc, now, DefaultSlotOptions())
	require.NotEmpty(t, groups)
	assert.Equal(t, "10:00 AM", groups[0].Slots[0].Time)
}

func TestAvailableSlots_SkipsFullyBookedDays(t *testing.T) {
	now := time.Date(2025, time.June, 5, 9, 0, 0, 0, time.UTC)

	// Book out the whole first day.
	var todayTimes []string
	for h := 10; h < 21; h++ {
		for _, m := range []int{0, 30} {
			todayTimes = append(todayTimes, FormatSlotTime(time.Date(2025, time.June, 5, h, m, 0, 0, time.UTC)))
		}
	}
	doc := DoctorSchedule{
		Available:   true,
		SlotsBooked: map[string][]string{"5_6_2025": todayTimes},
	}

	groups := AvailableSlots(doc, now, DefaultSlotOptions())
	require.NotEmpty(t, groups)
	assert.Equal(t, "6_6_2025", groups[0].Key)
	for _, g := range groups {
		assert.NotEqual(t, "5_6_2025", g.Key)
		assert.NotEmpty(t, g.Slots)
	}
}

func TestAvailableSlots_GroupsAndSlotsAscending(t *testing.T) {
	now := time.Date(2025, time.June, 5, 9, 0, 0, 0, time.UTC)
	doc := DoctorSchedule{Available: true}

	groups := AvailableSlots(doc, now, DefaultSlotOptions())
	require.Len(t, groups, 7)

	for i := 1; i < len(groups); i++ {
		assert.True(t, groups[i].Date.After(groups[i-1].Date))
	}
	for _, g := range groups {
		for i := 1; i < len(g.Slots); i++ {
			assert.True(t, g.Slots[i].DateTime.After(g.Slots[i-1].DateTime))
		}
	}
}

func TestAvailableSlots_Deterministic(t *testing.T) {
	now := time.Date(2025, time.June, 5, 11, 40, 0, 0, time.UTC)
	doc := DoctorSchedule{
		Available: true,
		SlotsBooked: map[string][]string{
			"5_6_2025": {"01:00 PM", "04:30 PM"},
			"7_6_2025": {"10:00 AM"},
		},
	}

	first := AvailableSlots(doc, now, DefaultSlotOptions())
	second := AvailableSlots(doc, now, DefaultSlotOptions())
	assert.Equal(t, first, second)
}

func TestAvailableSlots_SlotKeysRoundTrip(t *testing.T) {
	now := time.Date(2025, time.June, 5, 9, 0, 0, 0, time.UTC)
	doc := DoctorSchedule{Available: true}

	for _, g := range AvailableSlots(doc, now, DefaultSlotOptions()) {
		day, month, year, err := ParseSlotDate(g.Key)
		require.NoError(t, err)
		assert.Equal(t, g.Date.Day(), day)
		assert.Equal(t, int(g.Date.Month()), month)
		assert.Equal(t, g.Date.Year(), year)
	}
}
