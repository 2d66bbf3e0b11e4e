package schedule

import "time"

// DoctorSchedule is the snapshot of a doctor's booking state the
// generator reads. SlotsBooked maps slot keys (see SlotKey) to the
// time strings already taken on that date.
type DoctorSchedule struct {
	Available   bool
	SlotsBooked map[string][]string
}

// TimeSlot is one bookable half-hour.
type TimeSlot struct {
	DateTime time.Time `json:"date_time"`
	Time     string    `json:"time"`
}

// DateGroup holds the free slots of a single calendar day, in
// ascending time order.
type DateGroup struct {
	Date  time.Time  `json:"date"`
	Key   string     `json:"slot_date"`
	Slots []TimeSlot `json:"slots"`
}

// SlotOptions bound slot generation. The zero value is not useful;
// start from DefaultSlotOptions.
type SlotOptions struct {
	StartHour   int
	EndHour     int
	Days        int
	Granularity time.Duration
}

// DefaultSlotOptions mirrors the clinic's operating hours: 10:00 to
// 21:00, seven date groups, half-hour slots.
func DefaultSlotOptions() SlotOptions {
	return SlotOptions{
		StartHour:   10,
		EndHour:     21,
		Days:        7,
		Granularity: 30 * time.Minute,
	}
}

// AvailableSlots generates the bookable date groups for a doctor
// starting from now. The result is empty when the doctor is not
// accepting bookings; callers that need to tell "unavailable" from
// "fully booked" inspect Available themselves.
//
// Generation starts tomorrow when now is within an hour of closing,
// so slots that would expire immediately are never offered. Days with
// no free slots are skipped and do not count toward the group target.
// The function is pure: fixed inputs always yield the same groups.
func AvailableSlots(doc DoctorSchedule, now time.Time, opts SlotOptions) []DateGroup {
	if !doc.Available {
		return nil
	}
	if opts.Granularity <= 0 {
		opts.Granularity = 30 * time.Minute
	}

	tooLateToday := now.Hour() >= opts.EndHour-1
	dayOffset := 0
	if tooLateToday {
		dayOffset = 1
	}

	var groups []DateGroup
	for i := dayOffset; i < 7 && len(groups) < opts.Days; i++ {
		day := now.AddDate(0, 0, i)
		open := dayOpen(now, day, i, tooLateToday, opts.StartHour)
		close := time.Date(day.Year(), day.Month(), day.Day(), opts.EndHour, 0, 0, 0, now.Location())

		var slots []TimeSlot
		for cur := open; cur.Before(close); cur = cur.Add(opts.Granularity) {
			formatted := FormatSlotTime(cur)
			if slotTaken(doc.SlotsBooked, SlotKey(cur), formatted) {
				continue
			}
			slots = append(slots, TimeSlot{DateTime: cur, Time: formatted})
		}

		if len(slots) > 0 {
			groups = append(groups, DateGroup{
				Date:  slots[0].DateTime,
				Key:   SlotKey(slots[0].DateTime),
				Slots: slots,
			})
		}
	}
	return groups
}

// dayOpen computes when bookable time opens on a candidate day. The
// first scanned day, when generation starts today, opens an hour out
// from now (never before startHour) snapped to a half-hour boundary;
// every later day opens at startHour sharp.
func dayOpen(now, day time.Time, offset int, tooLateToday bool, startHour int) time.Time {
	if offset == 0 && !tooLateToday {
		hour := now.Hour() + 1
		if hour < startHour {
			hour = startHour
		}
		minute := 0
		if now.Minute() > 30 {
			minute = 30
		}
		return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
	}
	return time.Date(day.Year(), day.Month(), day.Day(), startHour, 0, 0, 0, now.Location())
}

func slotTaken(booked map[string][]string, key, slotTime string) bool {
	for _, t := range booked[key] {
		if t == slotTime {
			return true
		}
	}
	return false
}
