// Package transcript implements the bot's conversation memory: an ordered,
// append-only in-memory log of turns shared by every pipeline pass.
//
// The store is the single mutable resource in the process. Append is atomic
// per call; relative ordering of turns committed by concurrently in-flight
// passes follows commit order, not arrival order. Each turn records a
// monotonic sequence number so interleavings stay diagnosable from logs.
package transcript

import (
	"sync"
	"time"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one recorded unit of conversation.
type Turn struct {
	// Role is system, user, or assistant. The system turn is authored once
	// at startup and never mutated.
	Role Role

	// Content is the text body. For turns derived from image attachments it
	// is the caption wrapped in the [Image description: "..."] delimiter.
	Content string

	// Author is the display name for user turns; empty for system and
	// assistant turns.
	Author string

	// Seq is the store-assigned commit sequence number.
	Seq int64

	// At is the commit timestamp.
	At time.Time
}

// Store is the append-only transcript. Turns are never edited or removed by
// the pipeline; the optional retention sweep (TrimFront) is the only way
// turns leave the store.
type Store struct {
	mu    sync.Mutex
	turns []Turn
	seq   int64
}

// New creates a store seeded with the persona system turn.
func New(persona string) *Store {
	s := &Store{}
	s.Append(Turn{Role: RoleSystem, Content: persona})
	return s
}

// Append commits a turn and returns it with Seq and At filled in.
func (s *Store) Append(t Turn) Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t.Seq = s.seq
	if t.At.IsZero() {
		t.At = time.Now()
	}
	s.turns = append(s.turns, t)
	return t
}

// Snapshot returns a copy of the full transcript in commit order.
func (s *Store) Snapshot() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Tail returns the seed system turn plus the last n non-system turns.
// n <= 0 returns the full transcript. Callers that want a bounded decision
// context use this; the response generator always takes Snapshot.
func (s *Store) Tail(n int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || len(s.turns) <= n+1 {
		out := make([]Turn, len(s.turns))
		copy(out, s.turns)
		return out
	}
	out := make([]Turn, 0, n+1)
	if len(s.turns) > 0 && s.turns[0].Role == RoleSystem {
		out = append(out, s.turns[0])
	}
	out = append(out, s.turns[len(s.turns)-n:]...)
	return out
}

// Len returns the number of committed turns, including the system turn.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// TrimFront drops the oldest non-system turns so at most max turns remain
// (system turn included). It returns the number of turns removed. This is
// the retention sweep's entry point and is never called by Append.
func (s *Store) TrimFront(max int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max <= 0 || len(s.turns) <= max {
		return 0
	}
	keep := max - 1 // reserve a slot for the system turn
	if keep < 0 {
		keep = 0
	}
	removed := len(s.turns) - 1 - keep
	if removed <= 0 {
		return 0
	}
	trimmed := make([]Turn, 0, max)
	trimmed = append(trimmed, s.turns[0])
	trimmed = append(trimmed, s.turns[len(s.turns)-keep:]...)
	s.turns = trimmed
	return removed
}
