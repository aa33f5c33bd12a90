// Package rules implements the forwarding rule table and recipient
// resolution. A rule maps an address pattern to the ordered list of
// destination addresses mail for that pattern is forwarded to.
package rules

import (
	"fmt"
	"strings"
)

// CatchAllKey matches any recipient not covered by a more specific rule.
const CatchAllKey = "@"

// Table is an immutable set of forwarding rules keyed by address pattern.
//
// A pattern key takes one of four forms:
//   - a full address ("user@domain")
//   - a domain suffix ("@domain")
//   - a bare local part ("user")
//   - the catch-all key "@"
type Table struct {
	entries map[string][]string
}

// NewTable validates the given rule map and builds a Table from it.
// Keys are lowercased; two keys that collide after lowercasing, an
// unrecognized key form, or an empty destination list are all rejected.
func NewTable(rules map[string][]string) (Table, error) {
	entries := make(map[string][]string, len(rules))

	for key, destinations := range rules {
		normalized := strings.ToLower(key)

		if err := validateKey(normalized); err != nil {
			return Table{}, fmt.Errorf("rule %q: %w", key, err)
		}
		if _, exists := entries[normalized]; exists {
			return Table{}, fmt.Errorf("rule %q: duplicate key", key)
		}
		if len(destinations) == 0 {
			return Table{}, fmt.Errorf("rule %q: destination list is empty", key)
		}
		for _, dest := range destinations {
			if strings.TrimSpace(dest) == "" {
				return Table{}, fmt.Errorf("rule %q: destination address is empty", key)
			}
		}

		entries[normalized] = append([]string(nil), destinations...)
	}

	return Table{entries: entries}, nil
}

// Lookup returns the destination list for an exact key match.
func (t Table) Lookup(key string) ([]string, bool) {
	destinations, ok := t.entries[key]
	return destinations, ok
}

// Len returns the number of rules in the table.
func (t Table) Len() int {
	return len(t.entries)
}

// match applies the lookup precedence for a single lowercased address:
// full address, then domain suffix, then local part, then catch-all.
// The first tier that has a rule wins.
func (t Table) match(addr string) ([]string, bool) {
	if destinations, ok := t.Lookup(addr); ok {
		return destinations, true
	}

	if at := strings.IndexByte(addr, '@'); at >= 0 {
		if destinations, ok := t.Lookup(addr[at:]); ok {
			return destinations, true
		}
		if destinations, ok := t.Lookup(addr[:at]); ok {
			return destinations, true
		}
	}

	return t.Lookup(CatchAllKey)
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}
	if key == CatchAllKey {
		return nil
	}
	if strings.ContainsAny(key, " \t") {
		return fmt.Errorf("key contains whitespace")
	}

	switch strings.Count(key, "@") {
	case 0:
		// Bare local part.
		return nil
	case 1:
		if strings.HasSuffix(key, "@") {
			return fmt.Errorf("key has an empty domain")
		}
		// Either "@domain" or "user@domain".
		return nil
	default:
		return fmt.Errorf("key contains more than one %q", "@")
	}
}
