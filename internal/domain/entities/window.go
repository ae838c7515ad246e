package entities

import "time"

// Window is an optional [From, To] date range bounding which revisions are
// visible to a query. Both bounds are inclusive; a nil bound is unbounded.
type Window struct {
	From *time.Time
	To   *time.Time
}

// UpTo returns a window with no lower bound and an inclusive upper bound.
func UpTo(t time.Time) Window {
	return Window{To: &t}
}

// Between returns a window with both bounds set.
func Between(from, to time.Time) Window {
	return Window{From: &from, To: &to}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.To != nil && t.After(*w.To) {
		return false
	}
	return true
}
