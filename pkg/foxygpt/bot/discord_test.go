package bot

import (
	"strings"
	"testing"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		limit  int
		chunks int
	}{
		{"short message", "hello", 2000, 1},
		{"exactly at limit", strings.Repeat("a", 10), 10, 1},
		{"splits at newlines", "aaaa\nbbbb\ncccc", 10, 2},
		{"hard splits long lines", strings.Repeat("a", 25), 10, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := splitMessage(tt.text, tt.limit)
			if len(chunks) != tt.chunks {
				t.Fatalf("got %d chunks %q, want %d", len(chunks), chunks, tt.chunks)
			}
			for i, c := range chunks {
				if len(c) > tt.limit {
					t.Fatalf("chunk %d exceeds limit: %d > %d", i, len(c), tt.limit)
				}
			}
			if got := strings.ReplaceAll(strings.Join(chunks, "\n"), "\n", ""); got != strings.ReplaceAll(tt.text, "\n", "") {
				t.Fatalf("content lost in split: %q", got)
			}
		})
	}
}
