// ABOUTME: Cookie jar state: collected cookies and cookies still available to award
// ABOUTME: Every transition runs under one mutex so both counts stay non-negative

package jar

import (
	"errors"
	"math"
	"sync"
)

// LowThreshold is the largest non-zero supply still considered low.
const LowThreshold = 2

var (
	// ErrEmptyJar is returned by Award when no cookies are available.
	ErrEmptyJar = errors.New("jar empty")

	// ErrInvalidAmount is returned by Restock for a non-positive count or one
	// the jar cannot hold.
	ErrInvalidAmount = errors.New("restock amount must be a positive integer")
)

// Tier labels the supply level of the jar.
type Tier string

const (
	TierEmpty   Tier = "EMPTY"
	TierLow     Tier = "LOW"
	TierStocked Tier = "STOCKED"
)

// Status is a point-in-time snapshot of the jar.
type Status struct {
	Collected int  `json:"collected"`
	Available int  `json:"available"`
	IsEmpty   bool `json:"is_empty"`
	IsLow     bool `json:"is_low"`
}

// Tier derives the supply label from the snapshot.
func (s Status) Tier() Tier {
	switch {
	case s.IsEmpty:
		return TierEmpty
	case s.IsLow:
		return TierLow
	default:
		return TierStocked
	}
}

// Award is the result of a single award attempt.
type Award struct {
	Granted   bool
	Collected int
	Available int
}

// Status is the jar as it stood when the attempt released the lock.
func (a Award) Status() Status {
	return statusOf(a.Collected, a.Available)
}

// Jar holds the two cookie counts.
type Jar struct {
	mu        sync.Mutex
	collected int
	available int
}

// New creates a jar holding initial cookies. Negative values clamp to zero.
func New(initial int) *Jar {
	j := &Jar{}
	j.SetAvailable(initial)
	return j
}

// Award moves one cookie from the jar to the collected total.
// An empty jar is left untouched and ErrEmptyJar is returned.
func (j *Jar) Award() (Award, error) {
	a, _, err := j.AwardWhen(func(Status) bool { return true })
	return a, err
}

// AwardWhen runs allow against the current status and awards a cookie only
// if it returns true, all under one lock. The bool result reports whether
// allow let the attempt through; ErrEmptyJar is only possible when it did.
func (j *Jar) AwardWhen(allow func(Status) bool) (Award, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	current := Award{Collected: j.collected, Available: j.available}
	if !allow(statusOf(j.collected, j.available)) {
		return current, false, nil
	}
	if j.available <= 0 {
		return current, true, ErrEmptyJar
	}

	j.available--
	j.collected++

	return Award{Granted: true, Collected: j.collected, Available: j.available}, true, nil
}

// Restock adds n cookies to the jar and returns the resulting status. Zero
// and negative counts, and counts that would overflow the supply, are
// rejected without touching the jar.
func (j *Jar) Restock(n int) (Status, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if n <= 0 || n > math.MaxInt-j.available {
		return statusOf(j.collected, j.available), ErrInvalidAmount
	}
	j.available += n
	return statusOf(j.collected, j.available), nil
}

// SetAvailable overrides the jar supply, clamping at zero.
func (j *Jar) SetAvailable(n int) {
	j.mu.Lock()
	j.available = max(0, n)
	j.mu.Unlock()
}

// ResetCollected clears the collected count and returns the resulting
// status. The jar supply is kept.
func (j *Jar) ResetCollected() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.collected = 0
	return statusOf(j.collected, j.available)
}

// ResetAll clears both counts.
func (j *Jar) ResetAll() {
	j.mu.Lock()
	j.collected = 0
	j.available = 0
	j.mu.Unlock()
}

// Status returns a snapshot of the jar.
func (j *Jar) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return statusOf(j.collected, j.available)
}

func statusOf(collected, available int) Status {
	return Status{
		Collected: collected,
		Available: available,
		IsEmpty:   available == 0,
		IsLow:     available > 0 && available <= LowThreshold,
	}
}
