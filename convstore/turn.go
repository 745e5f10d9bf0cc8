// Package convstore keeps the size-bounded per-chat turn history and its
// durable backends.
package convstore

import "unicode/utf8"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation. Turns are appended in
// (user, assistant) pairs; a request is never stored without its answer.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Ceilings bounds a stored conversation. Zero means unbounded for that axis.
type Ceilings struct {
	MaxChars int
	MaxPairs int
}

func DefaultCeilings() Ceilings {
	return Ceilings{MaxChars: 25000, MaxPairs: 20}
}

// CharSize is the total character count of all turn contents. Characters,
// not bytes, so multi-byte scripts are budgeted the same as ASCII.
func CharSize(turns []Turn) int {
	size := 0
	for _, t := range turns {
		size += utf8.RuneCountInString(t.Content)
	}
	return size
}

// Prune drops oldest (user, assistant) pairs until both ceilings hold, then
// collapses consecutive duplicate pairs. It never splits a pair, so a
// response cannot be orphaned from its prompt. A trailing odd turn from a
// caller-supplied slice is preserved as the newest entry. The char ceiling
// is absolute: a single pair bigger than it is dropped too, leaving the
// history empty rather than over budget.
func Prune(turns []Turn, c Ceilings) []Turn {
	out := make([]Turn, len(turns))
	copy(out, turns)

	out = dedupePairs(out)

	if c.MaxPairs > 0 {
		for len(out)/2 > c.MaxPairs {
			out = out[2:]
		}
	}
	if c.MaxChars > 0 {
		for len(out) > 0 && CharSize(out) > c.MaxChars {
			out = out[min(2, len(out)):]
		}
	}
	return out
}

func dedupePairs(turns []Turn) []Turn {
	if len(turns) < 4 {
		return turns
	}
	out := turns[:2]
	for i := 2; i+1 < len(turns); i += 2 {
		prevU, prevA := out[len(out)-2], out[len(out)-1]
		if turns[i] == prevU && turns[i+1] == prevA {
			continue
		}
		out = append(out, turns[i], turns[i+1])
	}
	if len(turns)%2 == 1 {
		out = append(out, turns[len(turns)-1])
	}
	return out
}
