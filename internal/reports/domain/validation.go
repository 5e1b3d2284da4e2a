package domain

import (
	"strings"
	"unicode/utf8"
)

// SubmissionInput is what completeness validation looks at.
type SubmissionInput struct {
	ReportType          ReportType
	PcoSignature        *string
	ClientSignature     *string
	ClientSignatureName *string
	BaitStations        int
	FumigationAreas     int
	TargetPests         int
}

// MissingForSubmission lists every requirement the report does not meet yet.
// An empty result means the report may be submitted.
func MissingForSubmission(in SubmissionInput) []string {
	var missing []string
	if blank(in.PcoSignature) {
		missing = append(missing, "pco_signature is required")
	}
	if blank(in.ClientSignature) {
		missing = append(missing, "client_signature is required")
	}
	if blank(in.ClientSignatureName) {
		missing = append(missing, "client_signature_name is required")
	}
	if in.ReportType.IncludesBait() && in.BaitStations == 0 {
		missing = append(missing, "at least one bait station is required")
	}
	if in.ReportType.IncludesFumigation() {
		if in.FumigationAreas == 0 {
			missing = append(missing, "at least one fumigation area is required")
		}
		if in.TargetPests == 0 {
			missing = append(missing, "at least one target pest is required")
		}
	}
	return missing
}

// DeclineNotes trims the reviewer's rejection reason and reports whether it
// reaches minLen characters.
func DeclineNotes(notes string, minLen int) (string, bool) {
	trimmed := strings.TrimSpace(notes)
	return trimmed, utf8.RuneCountInString(trimmed) >= minLen
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
