package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Slot dates travel through the API as "day_month_year" with no zero
// padding, e.g. "5_6_2025". Slot times are 12-hour clock strings with
// an AM/PM marker, e.g. "10:30 AM".

// MalformedDateError reports a slot date or time that could not be
// parsed into numeric components. It is never silently defaulted:
// a guessed instant could mis-enable a payment or call-join action.
type MalformedDateError struct {
	Field string
	Value string
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("malformed %s: %q", e.Field, e.Value)
}

// slotTimeLayouts covers both the padded hour the generator emits and
// the unpadded form older records carry.
var slotTimeLayouts = []string{"03:04 PM", "3:04 PM"}

// ParseSlotDate splits a "day_month_year" key into its components.
// Single- and double-digit day/month are accepted; the year must be a
// four-digit integer.
func ParseSlotDate(slotDate string) (day, month, year int, err error) {
	parts := strings.Split(slotDate, "_")
	if len(parts) != 3 {
		return 0, 0, 0, &MalformedDateError{Field: "slot date", Value: slotDate}
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n <= 0 {
			return 0, 0, 0, &MalformedDateError{Field: "slot date", Value: slotDate}
		}
		nums[i] = n
	}

	day, month, year = nums[0], nums[1], nums[2]
	if day > 31 || month > 12 || year < 1000 || year > 9999 {
		return 0, 0, 0, &MalformedDateError{Field: "slot date", Value: slotDate}
	}
	return day, month, year, nil
}

// ParseSlotTime parses a 12-hour clock string like "10:30 AM".
func ParseSlotTime(slotTime string) (time.Time, error) {
	trimmed := strings.TrimSpace(slotTime)
	for _, layout := range slotTimeLayouts {
		if t, err := time.Parse(layout, strings.ToUpper(trimmed)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &MalformedDateError{Field: "slot time", Value: slotTime}
}

// SlotInstant combines a slot date and time into a single local
// instant in loc. Pass nil for the system location.
func SlotInstant(slotDate, slotTime string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}

	day, month, year, err := ParseSlotDate(slotDate)
	if err != nil {
		return time.Time{}, err
	}

	clock, err := ParseSlotTime(slotTime)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(year, time.Month(month), day, clock.Hour(), clock.Minute(), 0, 0, loc), nil
}

// SlotKey is the inverse of ParseSlotDate. It uses the same unpadded
// formatting as slot generation so lookups against booked-slot maps
// round-trip exactly.
func SlotKey(t time.Time) string {
	return fmt.Sprintf("%d_%d_%d", t.Day(), int(t.Month()), t.Year())
}

// FormatSlotTime renders an instant as the padded 12-hour string
// stored alongside booked slots, e.g. "09:00 AM".
func FormatSlotTime(t time.Time) string {
	return t.Format("03:04 PM")
}

// sameDay reports whether two instants fall on the same calendar date.
func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
