package scheduler

import "time"

type interval time.Duration

// Every runs a task at a fixed interval measured from the end of the last run.
func Every(d time.Duration) Schedule {
	return interval(d)
}

func (i interval) Next(after time.Time) time.Time {
	return after.Add(time.Duration(i))
}

type daily struct {
	hour, minute int
	loc          *time.Location
}

// DailyAt runs a task every day at hour:minute in loc.
func DailyAt(hour, minute int, loc *time.Location) Schedule {
	return daily{hour, minute, orUTC(loc)}
}

func (d daily) Next(after time.Time) time.Time {
	now := after.In(d.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

type weekly struct {
	day          time.Weekday
	hour, minute int
	loc          *time.Location
}

// WeeklyAt runs a task once a week on day at hour:minute in loc.
func WeeklyAt(day time.Weekday, hour, minute int, loc *time.Location) Schedule {
	return weekly{day, hour, minute, orUTC(loc)}
}

func (w weekly) Next(after time.Time) time.Time {
	now := after.In(w.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), w.hour, w.minute, 0, 0, w.loc)
	next = next.AddDate(0, 0, (int(w.day)-int(next.Weekday())+7)%7)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

type monthly struct {
	day, hour, minute int
	loc               *time.Location
}

// MonthlyAt runs a task on the given day of each month at hour:minute in loc.
// Days past 28 are clamped to 28 so every month has a run.
func MonthlyAt(day, hour, minute int, loc *time.Location) Schedule {
	if day < 1 {
		day = 1
	}
	if day > 28 {
		day = 28
	}
	return monthly{day, hour, minute, orUTC(loc)}
}

func (m monthly) Next(after time.Time) time.Time {
	now := after.In(m.loc)
	next := time.Date(now.Year(), now.Month(), m.day, m.hour, m.minute, 0, 0, m.loc)
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month()+1, m.day, m.hour, m.minute, 0, 0, m.loc)
	}
	return next
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
