package govern

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/acordeiro/cellbook/pkg/domain"
)

func TestGovernWithinBudget(t *testing.T) {
	d := Govern("hello", 100)
	if d.ForPersistence != "hello" {
		t.Errorf("ForPersistence = %q, want %q", d.ForPersistence, "hello")
	}
	if d.ForAIContext != "hello" {
		t.Errorf("ForAIContext = %q, want %q", d.ForAIContext, "hello")
	}
	if d.FlaggedTooLarge {
		t.Error("FlaggedTooLarge = true, want false")
	}
}

func TestGovernOversized(t *testing.T) {
	big := strings.Repeat("x", 7000)
	d := Govern(big, DefaultBudget)

	// Persisted value keeps every byte; the generation context gets none.
	if d.ForPersistence != big {
		t.Errorf("ForPersistence truncated: len = %d, want %d", len(d.ForPersistence), len(big))
	}
	if d.ForAIContext != "" {
		t.Errorf("ForAIContext = %d bytes, want empty", len(d.ForAIContext))
	}
	if !d.FlaggedTooLarge {
		t.Error("FlaggedTooLarge = false, want true")
	}
}

func TestGovernExactBudgetNotFlagged(t *testing.T) {
	s := strings.Repeat("x", 50)
	if d := Govern(s, 50); d.FlaggedTooLarge {
		t.Error("value at exactly the budget should not be flagged")
	}
}

func TestGovernZeroBudgetUsesDefault(t *testing.T) {
	s := strings.Repeat("x", DefaultBudget+1)
	if d := Govern(s, 0); !d.FlaggedTooLarge {
		t.Error("zero budget should fall back to the default")
	}
	if d := Govern("small", 0); d.FlaggedTooLarge {
		t.Error("small value flagged under default budget")
	}
}

func TestSerialize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string passthrough", "plain", "plain"},
		{"number", float64(3), "3"},
		{"map", map[string]any{"a": 1}, `{"a":1}`},
		{"nil", nil, "null"},
		{"bool", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Serialize(tt.in); got != tt.want {
				t.Errorf("Serialize(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBudget(t *testing.T) {
	if got := Budget(nil); got != DefaultBudget {
		t.Errorf("Budget(nil) = %d, want %d", got, DefaultBudget)
	}
	nb := &domain.Notebook{}
	if got := Budget(nb); got != DefaultBudget {
		t.Errorf("Budget(empty settings) = %d, want %d", got, DefaultBudget)
	}
	nb.Settings.OutputMaxSize = 123
	if got := Budget(nb); got != 123 {
		t.Errorf("Budget(override) = %d, want 123", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 4); got != "abcd" {
		t.Errorf("Truncate = %q, want %q", got, "abcd")
	}
	if got := Truncate("ab", 4); got != "ab" {
		t.Errorf("Truncate under max = %q, want %q", got, "ab")
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Errorf("Truncate max 0 = %q, want passthrough", got)
	}
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	// "é" is two bytes; a cut at 2 lands mid-rune and must back up.
	if got := Truncate("héllo", 2); got != "h" {
		t.Errorf("Truncate mid-rune = %q, want %q", got, "h")
	}
	s := strings.Repeat("é", 10)
	for max := 1; max < len(s); max++ {
		got := Truncate(s, max)
		if !utf8.ValidString(got) {
			t.Fatalf("Truncate(%d) produced invalid UTF-8: %q", max, got)
		}
		if len(got) > max {
			t.Fatalf("Truncate(%d) returned %d bytes", max, len(got))
		}
	}
}
