package rules

import (
	"strings"
	"testing"
)

func TestNewTable_ValidKeys(t *testing.T) {
	t.Parallel()

	table, err := NewTable(map[string][]string{
		"info@example.com": {"a@dest.com"},
		"@example.org":     {"b@dest.com"},
		"admin":            {"c@dest.com"},
		"@":                {"d@dest.com"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := table.Len(); got != 4 {
		t.Errorf("Len(): got %d, want 4", got)
	}

	destinations, ok := table.Lookup("info@example.com")
	if !ok {
		t.Fatal("Lookup(info@example.com): got miss, want hit")
	}
	if len(destinations) != 1 || destinations[0] != "a@dest.com" {
		t.Errorf("Lookup(info@example.com): got %v, want [a@dest.com]", destinations)
	}

	if _, ok := table.Lookup("missing@example.com"); ok {
		t.Error("Lookup(missing@example.com): got hit, want miss")
	}
}

func TestNewTable_LowercasesKeys(t *testing.T) {
	t.Parallel()

	table, err := NewTable(map[string][]string{
		"INFO@Example.COM": {"a@dest.com"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := table.Lookup("info@example.com"); !ok {
		t.Error("Lookup(info@example.com): got miss, want hit")
	}
}

func TestNewTable_RejectsCaseDuplicateKeys(t *testing.T) {
	t.Parallel()

	_, err := NewTable(map[string][]string{
		"info@example.com": {"a@dest.com"},
		"Info@example.com": {"b@dest.com"},
	})
	if err == nil {
		t.Fatal("expected error for duplicate keys, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error %q does not mention duplicate", err)
	}
}

func TestNewTable_RejectsEmptyDestinationList(t *testing.T) {
	t.Parallel()

	_, err := NewTable(map[string][]string{
		"info@example.com": {},
	})
	if err == nil {
		t.Fatal("expected error for empty destination list, got nil")
	}
}

func TestNewTable_RejectsBlankDestination(t *testing.T) {
	t.Parallel()

	_, err := NewTable(map[string][]string{
		"info@example.com": {"a@dest.com", "  "},
	})
	if err == nil {
		t.Fatal("expected error for blank destination, got nil")
	}
}

func TestNewTable_RejectsMalformedKeys(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"empty domain", "user@"},
		{"two at signs", "a@b@c"},
		{"whitespace", "has space@example.com"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewTable(map[string][]string{
				tc.key: {"a@dest.com"},
			})
			if err == nil {
				t.Errorf("key %q: expected error, got nil", tc.key)
			}
		})
	}
}
