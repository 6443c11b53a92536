package dialog

import (
	"strconv"
	"strings"

	"fieldline/pkg/directory"
)

// substringMinLen gates the substring rule: the shorter of reply and label
// must be at least this long, or trivial fragments like "a" would match
// everything.
const substringMinLen = 3

// Matcher resolves free-text selection replies against an option snapshot.
type Matcher struct {
	aliases map[string]string
}

// NewMatcher builds a matcher with the given alias table. A nil table falls
// back to the default aliases.
func NewMatcher(aliases map[string]string) *Matcher {
	if aliases == nil {
		aliases = DefaultKeywords().Aliases
	}

	normalized := make(map[string]string, len(aliases))
	for alias, fragment := range aliases {
		normalized[normalizeText(alias)] = normalizeText(fragment)
	}
	return &Matcher{aliases: normalized}
}

// Match resolves reply against the ordered options. Rules apply in order and
// the first hit wins:
//
//  1. ordinal: reply parses as n with 1 <= n <= len(options)
//  2. exact label, case-insensitive
//  3. alias table: reply is a known alias, match a label containing its
//     fragment
//  4. substring containment either direction, both sides >= 3 chars
//
// When nothing matches, ok is false and the caller must re-prompt rather
// than guess.
func (m *Matcher) Match(reply string, options []directory.Option) (directory.Option, bool) {
	normalized := normalizeText(reply)
	if normalized == "" || len(options) == 0 {
		return directory.Option{}, false
	}

	if n, err := strconv.Atoi(normalized); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], true
		}
		return directory.Option{}, false
	}

	for _, opt := range options {
		if normalizeText(opt.Label) == normalized {
			return opt, true
		}
	}

	if fragment, ok := m.aliases[normalized]; ok {
		for _, opt := range options {
			if strings.Contains(normalizeText(opt.Label), fragment) {
				return opt, true
			}
		}
	}

	for _, opt := range options {
		label := normalizeText(opt.Label)
		shorter := len(normalized)
		if len(label) < shorter {
			shorter = len(label)
		}
		if shorter < substringMinLen {
			continue
		}
		if strings.Contains(label, normalized) || strings.Contains(normalized, label) {
			return opt, true
		}
	}

	return directory.Option{}, false
}
