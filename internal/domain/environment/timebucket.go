package environment

import "time"

const (
	TimeOfDayDawn      = "dawn"
	TimeOfDayMorning   = "morning"
	TimeOfDayNoon      = "noon"
	TimeOfDayAfternoon = "afternoon"
	TimeOfDayEvening   = "evening"
	TimeOfDayNight     = "night"
)

// TimeOfDay buckets an hour in [0,23].
func TimeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour < 8:
		return TimeOfDayDawn
	case hour >= 8 && hour < 12:
		return TimeOfDayMorning
	case hour >= 12 && hour < 14:
		return TimeOfDayNoon
	case hour >= 14 && hour < 17:
		return TimeOfDayAfternoon
	case hour >= 17 && hour < 20:
		return TimeOfDayEvening
	default:
		return TimeOfDayNight
	}
}

func IsDaylight(hour int) bool {
	return hour >= 6 && hour < 18
}

type monthDay struct {
	month time.Month
	day   int
}

var specialDates = map[monthDay]string{
	{time.January, 1}:   "New Year",
	{time.February, 14}: "Valentine's Day",
	{time.October, 31}:  "Halloween",
	{time.December, 24}: "Christmas Eve",
	{time.December, 25}: "Christmas",
	{time.December, 31}: "New Year's Eve",
}

// SpecialDate returns the calendar tag for t's date, or "".
func SpecialDate(t time.Time) string {
	return specialDates[monthDay{t.Month(), t.Day()}]
}

// BuildTimeInfo evaluates t in its own location, which is the device's offset
// when the client sent an RFC 3339 timestamp.
func BuildTimeInfo(t time.Time) TimeInfo {
	zone, offset := t.Zone()
	if zone == "" {
		zone = "UTC"
		if offset != 0 {
			zone += t.Format("-07:00")
		}
	}
	h := t.Hour()
	return TimeInfo{
		Timestamp:   t,
		TimeZone:    zone,
		IsDaylight:  IsDaylight(h),
		TimeOfDay:   TimeOfDay(h),
		SpecialDate: SpecialDate(t),
	}
}
