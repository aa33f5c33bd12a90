// Package rewrite transforms a raw message's header block so the forwarded
// copy passes sender verification at the outbound relay. The body after the
// first blank line is passed through byte for byte.
//
// Header handling is line-oriented and fold-aware: a header's value may
// continue on following lines that begin with whitespace, and any removal
// or replacement consumes those continuation lines too.
package rewrite

import (
	"log/slog"
	"regexp"
	"strings"
)

// Options carries the rewrite settings for one message.
type Options struct {
	// SenderAddress, when set, becomes the address of the rewritten From
	// header. When empty, ChosenOriginal is used instead.
	SenderAddress string

	// SubjectPrefix is prepended to every Subject value when non-empty.
	SubjectPrefix string

	// ForwardTo, when set, replaces every To header value.
	ForwardTo string

	// ChosenOriginal is the original recipient credited with the match;
	// it doubles as the From address when no SenderAddress is configured.
	ChosenOriginal string
}

// strippedHeaders are removed entirely before resending. They either
// conflict with the relay's own values or carry signatures the rewrite
// invalidates.
var strippedHeaders = map[string]bool{
	"return-path":    true,
	"sender":         true,
	"message-id":     true,
	"dkim-signature": true,
}

var (
	angleAddr  = regexp.MustCompile(`<.*>`)
	foldedLine = regexp.MustCompile(`\r?\n[ \t]+`)
)

// Rewrite applies the full header transformation: Reply-To injection, From
// rewrite, Subject prefixing, To override, and removal of headers that must
// not be forwarded. The body is returned unmodified.
func Rewrite(raw string, opts Options) string {
	head, body := splitMessage(raw)

	eol := "\n"
	if strings.Contains(head, "\r\n") {
		eol = "\r\n"
	}

	entries, blank := parseHeaders(head)

	entries = injectReplyTo(entries, eol)
	entries = rewriteFrom(entries, opts, eol)
	if opts.SubjectPrefix != "" {
		entries = prefixSubject(entries, opts.SubjectPrefix)
	}
	if opts.ForwardTo != "" {
		entries = overrideTo(entries, opts.ForwardTo, eol)
	}
	entries = stripUnsafe(entries)

	var b strings.Builder
	b.Grow(len(raw))
	for _, e := range entries {
		b.WriteString(e.text)
	}
	b.WriteString(blank)
	b.WriteString(body)
	return b.String()
}

// splitMessage splits at the first blank line. The blank line stays with
// the header block; the body is everything after it. Without a blank line
// the whole input counts as header and the body is empty.
func splitMessage(raw string) (head, body string) {
	i := 0
	for i < len(raw) {
		nl := strings.IndexByte(raw[i:], '\n')
		if nl < 0 {
			break
		}
		line := raw[i : i+nl+1]
		if line == "\n" || line == "\r\n" {
			return raw[:i+nl+1], raw[i+nl+1:]
		}
		i += nl + 1
	}
	return raw, ""
}

// entry is one logical header: its lowercased name and the raw text of the
// header line plus any folded continuation lines, terminators included.
type entry struct {
	name string
	text string
}

// parseHeaders splits the header block into logical headers, keeping the
// final blank line (if any) separate so it can be re-emitted verbatim.
func parseHeaders(block string) ([]entry, string) {
	var entries []entry

	i := 0
	for i < len(block) {
		var line string
		if nl := strings.IndexByte(block[i:], '\n'); nl < 0 {
			line = block[i:]
			i = len(block)
		} else {
			line = block[i : i+nl+1]
			i += nl + 1
		}

		if strings.TrimRight(line, "\r\n") == "" {
			// The blank terminator; splitMessage guarantees it is last.
			return entries, line
		}

		if (line[0] == ' ' || line[0] == '\t') && len(entries) > 0 {
			entries[len(entries)-1].text += line
			continue
		}

		name := ""
		if c := strings.IndexByte(line, ':'); c >= 0 {
			name = strings.ToLower(strings.TrimSpace(line[:c]))
		}
		entries = append(entries, entry{name: name, text: line})
	}

	return entries, ""
}

// headerValue extracts a header's value: everything after the colon, with
// the leading whitespace and the final line terminator removed. Folded
// continuation lines stay embedded.
func headerValue(text string) string {
	if c := strings.IndexByte(text, ':'); c >= 0 {
		text = text[c+1:]
	}
	text = strings.TrimLeft(text, " \t")
	return strings.TrimRight(text, "\r\n")
}

// injectReplyTo appends a Reply-To header carrying the original From value
// when the message has none. Messages without a From header are left alone.
func injectReplyTo(entries []entry, eol string) []entry {
	for _, e := range entries {
		if e.name == "reply-to" {
			return entries
		}
	}

	var from string
	found := false
	for _, e := range entries {
		if e.name == "from" {
			from = headerValue(e.text)
			found = true
			break
		}
	}
	if !found {
		slog.Debug("message has no From header, skipping Reply-To injection")
		return entries
	}

	if n := len(entries); n > 0 && !strings.HasSuffix(entries[n-1].text, "\n") {
		entries[n-1].text += eol
	}
	return append(entries, entry{name: "reply-to", text: "Reply-To: " + from + eol})
}

// rewriteFrom replaces every From header with a single line that keeps the
// original display name but swaps in a verifiable address.
func rewriteFrom(entries []entry, opts Options, eol string) []entry {
	var from string
	found := false
	for _, e := range entries {
		if e.name == "from" {
			from = unfold(headerValue(e.text))
			found = true
			break
		}
	}
	if !found {
		return entries
	}

	line := "From: " + newFromValue(from, opts) + eol

	out := make([]entry, 0, len(entries))
	inserted := false
	for _, e := range entries {
		if e.name == "from" {
			if !inserted {
				out = append(out, entry{name: "from", text: line})
				inserted = true
			}
			continue
		}
		out = append(out, e)
	}
	return out
}

// newFromValue builds the rewritten From value. With a configured sender
// the original angle-bracket address is dropped from the display name.
// Without one, the chosen original recipient becomes the address and any
// literal angle brackets in the original value are substituted textually
// rather than re-parsed, matching long-standing behavior for malformed
// From headers.
func newFromValue(from string, opts Options) string {
	if opts.SenderAddress != "" {
		name := strings.TrimSpace(angleAddr.ReplaceAllString(from, ""))
		return name + " <" + opts.SenderAddress + ">"
	}

	name := strings.Replace(from, "<", "at ", 1)
	name = strings.Replace(name, ">", "", 1)
	return name + " <" + opts.ChosenOriginal + ">"
}

func prefixSubject(entries []entry, prefix string) []entry {
	for i, e := range entries {
		if e.name != "subject" {
			continue
		}
		c := strings.IndexByte(e.text, ':')
		rest := e.text[c+1:]
		lead := rest[:len(rest)-len(strings.TrimLeft(rest, " \t"))]
		entries[i].text = e.text[:c+1] + lead + prefix + rest[len(lead):]
	}
	return entries
}

func overrideTo(entries []entry, forwardTo, eol string) []entry {
	for i, e := range entries {
		if e.name == "to" {
			entries[i].text = "To: " + forwardTo + eol
		}
	}
	return entries
}

func stripUnsafe(entries []entry) []entry {
	out := entries[:0]
	for _, e := range entries {
		if strippedHeaders[e.name] {
			continue
		}
		out = append(out, e)
	}
	return out
}

func unfold(v string) string {
	return foldedLine.ReplaceAllString(v, " ")
}
