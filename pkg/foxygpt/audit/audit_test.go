package audit

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := openTestLog(t)

	entries := []Entry{
		{Kind: KindFlaggedContent, EventID: "ev-1", ChannelID: "c1", AuthorID: "u1", AuthorName: "alice", Content: "bad message", At: time.Now().Add(-2 * time.Minute)},
		{Kind: KindDecisionAnomaly, EventID: "ev-2", ChannelID: "c1", AuthorID: "u2", AuthorName: "bob", Detail: "no anchor", At: time.Now().Add(-time.Minute)},
		{Kind: KindSafetyFailure, EventID: "ev-3", ChannelID: "c1", AuthorID: "u3", AuthorName: "carol", Detail: "502", At: time.Now()},
	}
	for _, e := range entries {
		if err := l.Record(e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := l.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	if got[0].Kind != KindSafetyFailure {
		t.Fatalf("newest entry kind = %s, want %s", got[0].Kind, KindSafetyFailure)
	}
	if got[0].ID == "" {
		t.Fatal("Record did not assign an ID")
	}
	if got[2].AuthorName != "alice" || got[2].Content != "bad message" {
		t.Fatalf("oldest entry mangled: %+v", got[2])
	}
}

func TestRecordTruncatesContent(t *testing.T) {
	l := openTestLog(t)

	long := strings.Repeat("x", 2000)
	if err := l.Record(Entry{Kind: KindFlaggedContent, EventID: "ev", ChannelID: "c", AuthorID: "u", AuthorName: "n", Content: long}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := l.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got[0].Content) != maxContentLen+len("...") {
		t.Fatalf("content not truncated: %d bytes", len(got[0].Content))
	}
}
