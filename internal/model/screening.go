package model

import "time"

// Screening states.
const (
	ScreeningActive   = "ACTIVE"
	ScreeningArchived = "ARCHIVED"
)

// Screening is the canonical weekly programming block for one movie edition
// at one cinema.  StartWeekDay anchors the block to the Monday of its ISO
// program week; all SessionDays of the screening fall inside that week.
type Screening struct {
	ID             uint64    // screenings.id
	CinemaID       uint64    // screenings.cinema_id
	MovieEditionID uint64    // screenings.movie_edition_id
	StartWeekDay   time.Time // screenings.start_week_day (a Monday, date only)
	State          string    // screenings.state
	CreatedAt      time.Time // screenings.created_at
}

// SessionDay groups the canonical showtimes of one calendar date under a
// screening.
type SessionDay struct {
	ID          uint64    // session_days.id
	ScreeningID uint64    // session_days.screening_id
	Date        time.Time // session_days.date (date only)
}

// SessionTime is one canonical showtime.  No two SessionTimes under the same
// SessionDay share a TimeOfDay; the materializer enforces that on upsert.
type SessionTime struct {
	ID            uint64     // session_times.id
	SessionDayID  uint64     // session_times.session_day_id
	TimeOfDay     string     // "HH:MM"
	StartDatetime time.Time  // session_times.start_datetime
	EndDatetime   *time.Time // session_times.end_datetime, nil when duration is unknown
}
