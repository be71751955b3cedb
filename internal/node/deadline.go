package node

import "time"

// Clock abstracts the time source of a handler.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// timerKind names the three timeouts sharing a proposer's deadline slot.
type timerKind uint8

const (
	timerNone timerKind = iota
	timerPhase
	timerHeartbeat
	timerStandby
)

func (k timerKind) String() string {
	switch k {
	case timerPhase:
		return "phase"
	case timerHeartbeat:
		return "heartbeat"
	case timerStandby:
		return "standby"
	default:
		return "none"
	}
}

// deadline is the single timer slot of a proposer. Arming supersedes the
// previous timer; the generation identifies the current arm so a firing
// that raced a rearm can be recognised and ignored.
//
// A deadline is only touched from the event loop.
type deadline struct {
	clock      Clock
	fire       func(kind timerKind, generation uint64)
	kind       timerKind
	generation uint64
	timer      Timer
}

func newDeadline(clock Clock, fire func(timerKind, uint64)) *deadline {
	return &deadline{clock: clock, fire: fire}
}

// arm schedules kind after d, replacing whatever was armed.
func (dl *deadline) arm(kind timerKind, d time.Duration) {
	dl.stop()
	dl.generation++
	dl.kind = kind

	generation := dl.generation
	dl.timer = dl.clock.AfterFunc(d, func() {
		dl.fire(kind, generation)
	})
}

// cancel disarms the slot. Firings already in flight become stale.
func (dl *deadline) cancel() {
	dl.stop()
	dl.generation++
	dl.kind = timerNone
}

// take consumes a firing. It returns false for a stale generation.
func (dl *deadline) take(generation uint64) bool {
	if generation != dl.generation || dl.kind == timerNone {
		return false
	}
	dl.kind = timerNone
	dl.timer = nil
	return true
}

// armed returns the kind currently scheduled.
func (dl *deadline) armed() timerKind {
	return dl.kind
}

func (dl *deadline) stop() {
	if dl.timer != nil {
		dl.timer.Stop()
		dl.timer = nil
	}
}
