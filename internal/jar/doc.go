// Package jar holds the cookie jar state machine.
//
// A Jar tracks two non-negative counts: cookies collected since the last
// reset and cookies still available to award. Award moves one cookie from
// the jar to the collected total, Restock refills the jar, and the reset
// methods clear one or both counts.
//
// Restock is strict: a zero or negative count returns ErrInvalidAmount and
// leaves the jar alone. SetAvailable is the only mutator that clamps.
//
// A Jar is safe for concurrent use. Each transition is one critical section,
// and AwardWhen lets callers gate an award on the status observed inside
// that same section.
package jar
