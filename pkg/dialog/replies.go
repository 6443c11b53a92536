package dialog

import (
	"fmt"
	"strings"

	"fieldline/pkg/directory"
)

// Reply texts live here, next to the classification rules they pair with, so
// the orchestrator only decides which one to send.

// RegistrationRequired is sent to senders the directory does not know.
func RegistrationRequired() string {
	return "Your number is not registered yet. Please contact your supervisor to get access."
}

// RateLimited tells a throttled sender to slow down.
func RateLimited() string {
	return "You have sent too many messages. Please wait a few minutes and try again."
}

// NoSheets is sent when a known sender has no sheets assigned yet.
func NoSheets(name string) string {
	if name == "" {
		return "You have no report sheets yet. Check back once data has been assigned to you."
	}
	return fmt.Sprintf("Hi %s, you have no report sheets yet. Check back once data has been assigned to you.", name)
}

// SheetList renders the numbered option list shown when a session opens.
func SheetList(name string, options []directory.Option) string {
	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "Hi %s, ", name)
	}
	b.WriteString("your report sheets:\n")
	writeNumberedList(&b, options)
	b.WriteString("\nReply with a number or a sheet name.")
	return b.String()
}

// SelectionResult hands out the access link for the picked sheet.
func SelectionResult(opt directory.Option) string {
	return fmt.Sprintf("%s: %s", opt.Label, opt.AccessURL)
}

// Reprompt repeats the option list after an unresolvable selection reply.
func Reprompt(options []directory.Option) string {
	var b strings.Builder
	b.WriteString("Sorry, I couldn't match that to a sheet. Your options:\n")
	writeNumberedList(&b, options)
	b.WriteString("\nReply with a number, or \"cancel\" to stop.")
	return b.String()
}

// Cancelled confirms that an open dialogue was abandoned.
func Cancelled() string {
	return "Cancelled. Send \"data\" whenever you need your sheets."
}

// SessionExpired nudges a sender whose dialogue timed out.
func SessionExpired() string {
	return "That list has expired. Send \"data\" to get a fresh one."
}

// Help summarizes the commands the gateway understands.
func Help() string {
	return strings.Join([]string{
		"Commands:",
		"- \"data\": list your report sheets",
		"- a number or sheet name: pick from the last list",
		"- \"cancel\": abandon the current list",
		"- \"help\": show this summary",
	}, "\n")
}

// Unrecognized is the generic guidance for texts the gateway cannot place.
func Unrecognized() string {
	return "Sorry, I didn't understand that. Send \"data\" for your report sheets or \"help\" for the command list."
}

// Apology is the catch-all reply when processing fails unexpectedly.
func Apology() string {
	return "Something went wrong on our side. Please try again in a moment."
}

func writeNumberedList(b *strings.Builder, options []directory.Option) {
	for i, opt := range options {
		fmt.Fprintf(b, "%d. %s", i+1, opt.Label)
		if opt.RecordCount > 0 {
			fmt.Fprintf(b, " (%d records)", opt.RecordCount)
		}
		if i < len(options)-1 {
			b.WriteByte('\n')
		}
	}
}
