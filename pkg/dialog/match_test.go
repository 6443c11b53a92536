package dialog

import (
	"testing"

	"fieldline/pkg/directory"
)

func matchOptions() []directory.Option {
	return []directory.Option{
		{Position: 1, Label: "Orders", AccessURL: "https://sheets.example/orders"},
		{Position: 2, Label: "Visits", AccessURL: "https://sheets.example/visits"},
		{Position: 3, Label: "Site Prescriptions", AccessURL: "https://sheets.example/rx"},
	}
}

func TestMatchRulePriority(t *testing.T) {
	t.Parallel()

	m := NewMatcher(nil)
	options := matchOptions()

	cases := []struct {
		reply string
		want  string
	}{
		{"1", "Orders"},             // ordinal
		{"3", "Site Prescriptions"}, // ordinal upper bound
		{"visits", "Visits"},        // exact, case-insensitive
		{"VISITS", "Visits"},
		{" Orders ", "Orders"},
		{"order", "Orders"},         // alias table
		{"rx", "Site Prescriptions"},
		{"site", "Site Prescriptions"}, // substring, len >= 3
		{"prescription", "Site Prescriptions"},
	}

	for _, tc := range cases {
		got, ok := m.Match(tc.reply, options)
		if !ok {
			t.Fatalf("Match(%q) missed, want %q", tc.reply, tc.want)
		}
		if got.Label != tc.want {
			t.Fatalf("Match(%q) = %q, want %q", tc.reply, got.Label, tc.want)
		}
	}
}

func TestMatchMisses(t *testing.T) {
	t.Parallel()

	m := NewMatcher(nil)
	options := matchOptions()

	misses := []string{
		"xyz",
		"0",  // ordinal out of range
		"4",  // ordinal out of range
		"-1",
		"or", // too short for the substring rule
		"",
		"   ",
	}

	for _, reply := range misses {
		if _, ok := m.Match(reply, options); ok {
			t.Fatalf("Match(%q) hit, want miss", reply)
		}
	}
}

func TestMatchSubstringBothDirections(t *testing.T) {
	t.Parallel()

	m := NewMatcher(map[string]string{})

	// Reply longer than the label still matches by containment.
	got, ok := m.Match("the visits sheet", []directory.Option{{Position: 1, Label: "Visits"}})
	if !ok || got.Label != "Visits" {
		t.Fatalf("Match(long reply) = %v/%v, want Visits hit", got.Label, ok)
	}
}

func TestMatchEmptyOptions(t *testing.T) {
	t.Parallel()

	m := NewMatcher(nil)
	if _, ok := m.Match("1", nil); ok {
		t.Fatal("Match against empty options hit, want miss")
	}
}

func TestMatchOrdinalBeatsNumericLabel(t *testing.T) {
	t.Parallel()

	m := NewMatcher(nil)
	options := []directory.Option{
		{Position: 1, Label: "2023 Archive"},
		{Position: 2, Label: "Current"},
	}

	got, ok := m.Match("2", options)
	if !ok || got.Label != "Current" {
		t.Fatalf("Match(2) = %q/%v, want ordinal hit on Current", got.Label, ok)
	}
}
