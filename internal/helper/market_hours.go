package helper

import "time"

// ForexHours: календарь FX-недели в UTC:
// суббота закрыта, воскресенье до 21:00 закрыто, пятница с 22:00 закрыта.
type ForexHours struct{}

func (ForexHours) IsOpen(t time.Time) bool {
	t = t.UTC()
	switch t.Weekday() {
	case time.Saturday:
		return false
	case time.Sunday:
		return t.Hour() >= 21
	case time.Friday:
		return t.Hour() < 22
	default:
		return true
	}
}

// AlwaysOpen: для инструментов без расписания и тестов.
type AlwaysOpen struct{}

func (AlwaysOpen) IsOpen(time.Time) bool { return true }
