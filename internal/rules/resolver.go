package rules

import "strings"

// Resolution is the outcome of matching a message's recipients against a
// rule table.
type Resolution struct {
	// Destinations is the concatenation, in recipient order, of every
	// matched rule's destination list. Duplicates across distinct matched
	// recipients are kept, so the result mirrors delivery order.
	Destinations []string

	// ChosenOriginal is the first recipient (in input order) whose rule
	// produced a match, verbatim as delivered. It is empty exactly when
	// Destinations is empty.
	ChosenOriginal string
}

// Empty reports whether no recipient matched any rule.
func (r Resolution) Empty() bool {
	return len(r.Destinations) == 0
}

// Resolve matches each original recipient against the table, in delivery
// order, and accumulates the destinations of every match. A recipient
// without a matching rule contributes nothing. When allowPlus is set, a
// "+tag" suffix in the local part is stripped for matching only; the
// recorded ChosenOriginal keeps the address as delivered.
func Resolve(recipients []string, table Table, allowPlus bool) Resolution {
	var res Resolution

	for _, recipient := range recipients {
		if recipient == "" {
			continue
		}
		destinations, ok := table.match(normalize(recipient, allowPlus))
		if !ok {
			continue
		}
		if res.ChosenOriginal == "" {
			res.ChosenOriginal = recipient
		}
		res.Destinations = append(res.Destinations, destinations...)
	}

	return res
}

func normalize(addr string, allowPlus bool) string {
	addr = strings.ToLower(addr)

	if !allowPlus {
		return addr
	}

	at := strings.IndexByte(addr, '@')
	if at < 0 {
		return addr
	}
	if plus := strings.IndexByte(addr[:at], '+'); plus >= 0 {
		return addr[:plus] + addr[at:]
	}
	return addr
}
