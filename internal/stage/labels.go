package stage

import "strings"

// Raw interview_stage labels produced by the classifiers.
const (
	LabelApplicationReceived = "application_received"
	LabelPhoneScreen         = "phone_screen"
	LabelTechnicalInterview  = "technical_interview"
	LabelBehavioralInterview = "behavioral_interview"
	LabelFinalInterview      = "final_interview"
	LabelInterview           = "interview"
	LabelOffer               = "offer"
	LabelRejected            = "rejected"
	LabelOther               = "other"
)

var labelStages = map[string]Stage{
	LabelApplicationReceived: Applied,
	LabelPhoneScreen:         Interview,
	LabelTechnicalInterview:  Interview,
	LabelBehavioralInterview: Interview,
	LabelFinalInterview:      Interview,
	LabelInterview:           Interview,
	LabelOffer:               Offer,
	LabelRejected:            Rejected,
}

// FromLabel maps a raw classifier label onto a Stage. Unknown labels and
// "other" report false.
func FromLabel(label string) (Stage, bool) {
	s, ok := labelStages[strings.ToLower(strings.TrimSpace(label))]
	return s, ok
}
