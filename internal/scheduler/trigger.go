package scheduler

import (
	"fmt"
	"time"
)

// Trigger решает, пора ли запускать джобу.
// last: момент, записанный после прошлого запуска; нулевое время значит «ещё не запускалась».
type Trigger interface {
	Due(now, last time.Time) bool
	// Stamp: что записать в lastRun после запуска в момент now.
	Stamp(now time.Time) time.Time
	String() string
}

// Interval срабатывает, когда с прошлого запуска прошло не меньше Every.
type Interval struct {
	Every time.Duration
}

func Every(d time.Duration) Interval {
	return Interval{Every: d}
}

func (t Interval) Due(now, last time.Time) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= t.Every
}

func (t Interval) Stamp(now time.Time) time.Time { return now }

func (t Interval) String() string { return "every " + t.Every.String() }

// DailyAt срабатывает раз в сутки в заданные час и минуту.
// lastRun ставится на границу минуты, поэтому повторный тик в ту же минуту не запускает джобу.
type DailyAt struct {
	Hour   int
	Minute int
	Loc    *time.Location
}

func At(hour, minute int, loc *time.Location) DailyAt {
	if loc == nil {
		loc = time.UTC
	}
	return DailyAt{Hour: hour, Minute: minute, Loc: loc}
}

func (t DailyAt) boundary(now time.Time) time.Time {
	n := now.In(t.loc())
	return time.Date(n.Year(), n.Month(), n.Day(), t.Hour, t.Minute, 0, 0, t.loc())
}

func (t DailyAt) loc() *time.Location {
	if t.Loc == nil {
		return time.UTC
	}
	return t.Loc
}

func (t DailyAt) Due(now, last time.Time) bool {
	n := now.In(t.loc())
	if n.Hour() != t.Hour || n.Minute() != t.Minute {
		return false
	}
	return !last.Equal(t.boundary(now))
}

func (t DailyAt) Stamp(now time.Time) time.Time { return t.boundary(now) }

func (t DailyAt) String() string {
	return fmt.Sprintf("daily at %02d:%02d %s", t.Hour, t.Minute, t.loc())
}
