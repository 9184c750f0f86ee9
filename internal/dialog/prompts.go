package dialog

import (
	"fmt"
	"strings"

	"github.com/wolfman30/studio-concierge/internal/knowledge"
)

// DateTimeLayout is the pattern conversants are asked to use for the
// appointment date and time (DD.MM.YYYY HH:MM).
const DateTimeLayout = "02.01.2006 15:04"

const (
	promptStartBooking    = "Would you like to request an appointment? Please answer with 'yes' or 'no'."
	promptName            = "Great! Please enter your full name."
	promptNameRequired    = "Please enter your full name (first and last name)."
	promptEmail           = "Thank you! Please enter your email address now."
	promptInvalidEmail    = "That doesn't seem to be a valid email address. Please try again."
	promptServiceRequired = "Please tell me which treatment you would like."
	promptDateTime        = "All right. When would you like to come in? Please enter date and time as DD.MM.YYYY HH:MM (e.g. 27.10.2025 15:30)."
	promptInvalidDateTime = "That date or time is not valid. Please use the format DD.MM.YYYY HH:MM (e.g. 27.10.2025 15:30)."
	promptYesNo           = "Please answer with 'yes' or 'no'."

	// ReplyCancelled ends a booking the conversant declined.
	ReplyCancelled = "Your appointment request has been cancelled. If you would like to start again, just write 'book an appointment'."
	// ReplyFailure is returned whenever a message could not be processed.
	ReplyFailure = "An unexpected error occurred. Please try again later."
)

// bookingPhrases start the booking flow when they appear as whole words in
// an initial-state message.
var bookingPhrases = []string{
	"appointment",
	"book",
	"booking",
	"reserve",
	"reservation",
}

var affirmative = map[string]struct{}{
	"yes":        {},
	"y":          {},
	"yeah":       {},
	"yep":        {},
	"sure":       {},
	"ok":         {},
	"okay":       {},
	"confirm":    {},
	"correct":    {},
	"yes please": {},
	"of course":  {},
}

var negative = map[string]struct{}{
	"no":        {},
	"n":         {},
	"nope":      {},
	"cancel":    {},
	"wrong":     {},
	"stop":      {},
	"no thanks": {},
}

// canonical normalizes text and collapses runs of whitespace to one space.
func canonical(text string) string {
	return strings.Join(strings.Fields(knowledge.Normalize(text)), " ")
}

func isAffirmative(text string) bool {
	_, ok := affirmative[canonical(text)]
	return ok
}

func isNegative(text string) bool {
	_, ok := negative[canonical(text)]
	return ok
}

func wantsBooking(text string) bool {
	padded := " " + canonical(text) + " "
	for _, phrase := range bookingPhrases {
		if strings.Contains(padded, " "+phrase+" ") {
			return true
		}
	}
	return false
}

func servicePrompt(services []string) string {
	if len(services) == 0 {
		return "Perfect. Which treatment would you like?"
	}
	return fmt.Sprintf("Perfect. Which treatment would you like? We offer: %s.", strings.Join(services, ", "))
}

func summaryPrompt(name, email, service, dateTime string) string {
	return fmt.Sprintf("Please confirm your details:\nName: %s\nEmail: %s\nTreatment: %s\nDate & time: %s\nIs that correct? (yes/no)",
		name, email, service, dateTime)
}
