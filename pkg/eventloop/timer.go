package eventloop

import "time"

// Timer runs a callback on the loop after a delay.
type Timer struct {
	t       *time.Timer
	due     time.Time
	stopped bool // loop-owned
}

// AfterFunc schedules fn to run on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	if d < 0 {
		d = 0
	}
	tm := &Timer{due: time.Now().Add(d)}
	tm.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if tm.stopped {
				return
			}
			tm.stopped = true
			fn()
		})
	})
	return tm
}

// Stop cancels the timer. It returns false if the timer already fired or was stopped.
func (t *Timer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	t.t.Stop()
	return true
}

// Due returns the time the timer was scheduled for.
func (t *Timer) Due() time.Time {
	return t.due
}

// Slot holds at most one pending timer.
type Slot struct {
	loop  *Loop
	timer *Timer
}

// NewSlot creates an empty slot bound to loop.
func NewSlot(loop *Loop) *Slot {
	return &Slot{loop: loop}
}

// Schedule arms the slot with fn after d. If a timer is already pending it
// does nothing and returns false.
func (s *Slot) Schedule(d time.Duration, fn func()) bool {
	if s.timer != nil {
		return false
	}

	var tm *Timer
	tm = s.loop.AfterFunc(d, func() {
		if s.timer == tm {
			s.timer = nil
		}
		fn()
	})
	s.timer = tm
	return true
}

// Reschedule replaces any pending timer with fn after d.
func (s *Slot) Reschedule(d time.Duration, fn func()) {
	s.Cancel()
	s.Schedule(d, fn)
}

// Cancel stops the pending timer, if any.
func (s *Slot) Cancel() bool {
	if s.timer == nil {
		return false
	}
	s.timer.Stop()
	s.timer = nil
	return true
}

// Pending reports whether a timer is armed.
func (s *Slot) Pending() bool {
	return s.timer != nil
}

// Due returns when the pending timer fires.
func (s *Slot) Due() (time.Time, bool) {
	if s.timer == nil {
		return time.Time{}, false
	}
	return s.timer.Due(), true
}
