package schedule

import "time"

// Status labels a consultation as the dashboards display it.
type Status string

// A paid session inside the live window always reports
// StatusVideoCallActive, so there is no separate "live now" status.
const (
	StatusCancelled       Status = "Cancelled"
	StatusCompleted       Status = "Completed"
	StatusVideoCallActive Status = "Video Call Active"
	StatusMissed          Status = "Missed"
	StatusToday           Status = "Today"
	StatusUpcoming        Status = "Upcoming"
)

// Call windows around the appointment start.
const (
	liveWindow       = 15 * time.Minute
	callOpensBefore  = 30 * time.Minute
	callClosesAfter  = 60 * time.Minute
)

// Appointment is the read-only snapshot the classifier works from.
// Persistence owns the record; this package never mutates it.
type Appointment struct {
	SlotDate        string
	SlotTime        string
	Amount          float64
	Payment         bool
	IsCompleted     bool
	Cancelled       bool
	VideoCallActive bool
}

// Session is the derived state for one appointment at one instant.
// IsCallAvailable, IsPaid and IsFuture are part of the contract the
// dashboards rely on, not incidental extras.
type Session struct {
	Status          Status    `json:"status"`
	IsCallAvailable bool      `json:"is_call_available"`
	IsPaid          bool      `json:"is_paid"`
	IsFuture        bool      `json:"is_future"`
	IsLive          bool      `json:"is_live"`
	IsToday         bool      `json:"is_today"`
	StartsAt        time.Time `json:"starts_at"`
}

// Classify derives the session state for apt as of now. It is a pure
// function: identical inputs always produce identical results, and it
// is safe to call concurrently.
//
// The rules form an ordered decision list; the first match wins.
// Cancelled and completed are terminal, so a cancelled appointment is
// never reported live, call-available or upcoming no matter what the
// other fields say.
func Classify(apt Appointment, now time.Time) (Session, error) {
	startsAt, err := SlotInstant(apt.SlotDate, apt.SlotTime, now.Location())
	if err != nil {
		return Session{}, err
	}

	s := Session{
		IsPaid:   apt.Payment,
		IsFuture: startsAt.After(now),
		StartsAt: startsAt,
	}

	if apt.Cancelled {
		s.Status = StatusCancelled
		return s, nil
	}
	if apt.IsCompleted {
		s.Status = StatusCompleted
		return s, nil
	}

	timeDiff := startsAt.Sub(now)
	s.IsToday = sameDay(startsAt, now)
	s.IsLive = s.IsToday && absDuration(timeDiff) <= liveWindow
	s.IsCallAvailable = s.IsToday && timeDiff <= callOpensBefore && timeDiff >= -callClosesAfter

	switch {
	case apt.VideoCallActive || (s.IsLive && apt.Payment):
		s.Status = StatusVideoCallActive
	case startsAt.Before(now):
		s.Status = StatusMissed
	case s.IsToday:
		s.Status = StatusToday
	default:
		s.Status = StatusUpcoming
	}
	return s, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
