// Package dialog holds the conversational smarts of the gateway: deciding
// what a sender wants (classification), resolving a free-text reply against
// the option list they were shown (matching), and composing the outbound
// reply texts.
package dialog

import "strings"

// Intent is the category assigned to one inbound text.
type Intent string

const (
	// IntentDataRequest asks for the sender's sheet list.
	IntentDataRequest Intent = "data_request"
	// IntentHelp asks for the command summary.
	IntentHelp Intent = "help"
	// IntentCancel abandons an open dialogue.
	IntentCancel Intent = "cancel"
	// IntentSelection is a reply to a previously shown option list.
	IntentSelection Intent = "selection"
	// IntentUnrecognized is everything else.
	IntentUnrecognized Intent = "unrecognized"
)

// Keywords configures the phrase sets driving classification and the alias
// table driving matching.
type Keywords struct {
	DataRequest []string
	Help        []string
	Cancel      []string
	Aliases     map[string]string
}

// DefaultKeywords returns the phrase sets shipped with the gateway.
func DefaultKeywords() Keywords {
	return Keywords{
		DataRequest: []string{"data", "report", "sheet", "list"},
		Help:        []string{"help", "menu", "commands"},
		Cancel:      []string{"cancel", "stop"},
		Aliases: map[string]string{
			"order":        "orders",
			"visit":        "visits",
			"prescription": "prescriptions",
			"rx":           "prescriptions",
		},
	}
}

// Classifier assigns intents to inbound texts.
type Classifier struct {
	dataRequest []string
	help        []string
	cancel      map[string]struct{}
}

// NewClassifier builds a classifier from the given keyword sets. Empty sets
// fall back to the defaults so a partially filled config stays usable.
func NewClassifier(kw Keywords) *Classifier {
	defaults := DefaultKeywords()
	if len(kw.DataRequest) == 0 {
		kw.DataRequest = defaults.DataRequest
	}
	if len(kw.Help) == 0 {
		kw.Help = defaults.Help
	}
	if len(kw.Cancel) == 0 {
		kw.Cancel = defaults.Cancel
	}

	cancel := make(map[string]struct{}, len(kw.Cancel))
	for _, word := range kw.Cancel {
		cancel[normalizeText(word)] = struct{}{}
	}

	return &Classifier{
		dataRequest: normalizeAll(kw.DataRequest),
		help:        normalizeAll(kw.Help),
		cancel:      cancel,
	}
}

// Classify categorizes text with the fixed precedence
// Cancel > Help > DataRequest > Selection (only with an open session) >
// Unrecognized. An open session never suppresses an explicit command.
func (c *Classifier) Classify(text string, hasOpenSession bool) Intent {
	normalized := normalizeText(text)
	if normalized == "" {
		return IntentUnrecognized
	}

	if _, ok := c.cancel[normalized]; ok {
		return IntentCancel
	}
	if containsAny(normalized, c.help) {
		return IntentHelp
	}
	if containsAny(normalized, c.dataRequest) {
		return IntentDataRequest
	}
	if hasOpenSession {
		return IntentSelection
	}
	return IntentUnrecognized
}

func normalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func normalizeAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, word := range words {
		if normalized := normalizeText(word); normalized != "" {
			out = append(out, normalized)
		}
	}
	return out
}

func containsAny(text string, words []string) bool {
	for _, word := range words {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}
