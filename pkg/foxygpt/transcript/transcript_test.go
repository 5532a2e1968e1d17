package transcript

import (
	"fmt"
	"sync"
	"testing"
)

func TestAppendPreservesOrder(t *testing.T) {
	s := New("persona")

	for i := 0; i < 10; i++ {
		s.Append(Turn{Role: RoleUser, Author: "alice", Content: fmt.Sprintf("msg %d", i)})
	}

	snap := s.Snapshot()
	if len(snap) != 11 {
		t.Fatalf("expected 11 turns (system + 10), got %d", len(snap))
	}
	if snap[0].Role != RoleSystem || snap[0].Content != "persona" {
		t.Fatalf("first turn is not the seeded system turn: %+v", snap[0])
	}
	for i := 1; i < len(snap); i++ {
		want := fmt.Sprintf("msg %d", i-1)
		if snap[i].Content != want {
			t.Errorf("turn %d: got %q, want %q", i, snap[i].Content, want)
		}
		if snap[i].Seq != snap[i-1].Seq+1 {
			t.Errorf("turn %d: seq %d does not follow %d", i, snap[i].Seq, snap[i-1].Seq)
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New("persona")
	s.Append(Turn{Role: RoleUser, Content: "hello"})

	snap := s.Snapshot()
	snap[1].Content = "mutated"

	if got := s.Snapshot()[1].Content; got != "hello" {
		t.Fatalf("store turn mutated through snapshot: %q", got)
	}
}

func TestTail(t *testing.T) {
	s := New("persona")
	for i := 0; i < 8; i++ {
		s.Append(Turn{Role: RoleUser, Content: fmt.Sprintf("msg %d", i)})
	}

	tests := []struct {
		n        int
		wantLen  int
		wantLast string
	}{
		{0, 9, "msg 7"},  // full transcript
		{-1, 9, "msg 7"}, // full transcript
		{3, 4, "msg 7"},  // system turn + last 3
		{100, 9, "msg 7"},
	}

	for _, tt := range tests {
		got := s.Tail(tt.n)
		if len(got) != tt.wantLen {
			t.Errorf("Tail(%d): got %d turns, want %d", tt.n, len(got), tt.wantLen)
			continue
		}
		if got[0].Role != RoleSystem {
			t.Errorf("Tail(%d): first turn is %s, want system", tt.n, got[0].Role)
		}
		if got[len(got)-1].Content != tt.wantLast {
			t.Errorf("Tail(%d): last turn %q, want %q", tt.n, got[len(got)-1].Content, tt.wantLast)
		}
	}
}

func TestTrimFrontKeepsSystemTurn(t *testing.T) {
	s := New("persona")
	for i := 0; i < 20; i++ {
		s.Append(Turn{Role: RoleUser, Content: fmt.Sprintf("msg %d", i)})
	}

	removed := s.TrimFront(5)
	if removed != 16 {
		t.Fatalf("removed %d turns, want 16", removed)
	}

	snap := s.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("got %d turns after trim, want 5", len(snap))
	}
	if snap[0].Role != RoleSystem {
		t.Fatalf("system turn evicted by trim: %+v", snap[0])
	}
	if snap[1].Content != "msg 16" || snap[4].Content != "msg 19" {
		t.Fatalf("trim kept wrong suffix: %q .. %q", snap[1].Content, snap[4].Content)
	}

	// A second sweep under the limit is a no-op.
	if removed := s.TrimFront(5); removed != 0 {
		t.Fatalf("second trim removed %d turns, want 0", removed)
	}
}

func TestConcurrentAppend(t *testing.T) {
	s := New("persona")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append(Turn{Role: RoleUser, Content: fmt.Sprintf("msg %d", i)})
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	if len(snap) != 51 {
		t.Fatalf("got %d turns, want 51", len(snap))
	}
	seen := make(map[int64]bool)
	for _, turn := range snap {
		if seen[turn.Seq] {
			t.Fatalf("duplicate seq %d", turn.Seq)
		}
		seen[turn.Seq] = true
	}
}
