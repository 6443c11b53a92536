// Package msisdn canonicalizes the phone-number identities used by the chat
// provider. Field employees type their numbers in every imaginable shape;
// everything downstream (rate windows, sessions, directory lookups) keys on
// the canonical form produced here.
package msisdn

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier is returned when a raw value cannot be recognized as
// a supported subscriber number in any accepted shape.
var ErrInvalidIdentifier = errors.New("invalid sender identifier")

const countryCode = "88"

var (
	localPattern         = regexp.MustCompile(`^01[0-9]{9}$`)
	internationalPattern = regexp.MustCompile(`^\+8801[0-9]{9}$`)
	barePattern          = regexp.MustCompile(`^8801[0-9]{9}$`)

	separatorReplacer = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "\t", "")
)

// Normalize converts a raw sender identifier into its canonical form: the
// bare country-code-prefixed digit string (for example "8801711112222").
//
// Accepted input shapes, after stripping whitespace, hyphens, and
// parentheses: local ("01711112222"), international ("+8801711112222"), and
// already-canonical ("8801711112222"). Normalize is pure and idempotent;
// canonical output fed back in returns unchanged.
func Normalize(raw string) (string, error) {
	stripped := separatorReplacer.Replace(strings.TrimSpace(raw))
	if stripped == "" {
		return "", fmt.Errorf("%w: empty value", ErrInvalidIdentifier)
	}

	switch {
	case localPattern.MatchString(stripped):
		return countryCode + stripped, nil
	case internationalPattern.MatchString(stripped):
		return strings.TrimPrefix(stripped, "+"), nil
	case barePattern.MatchString(stripped):
		return stripped, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
}

// Valid reports whether a raw value parses under the same shape rules as
// Normalize. Callers use it to distinguish "could not parse" from "parsed
// but unknown to the directory".
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}
