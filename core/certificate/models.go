package certificate

import (
	"fmt"
	"time"
)

// ActivityType marks the activity log entries written on issuance.
const ActivityType = "certificate"

type Certificate struct {
	ID        string    `json:"id"`
	Hash      string    `json:"hash"`
	OwnerID   string    `json:"owner_id"`
	CourseID  string    `json:"course_id"`
	LearnerID string    `json:"learner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity is the log entry recording an issued certificate.
type Activity struct {
	ID            string    `json:"id"`
	CertificateID string    `json:"certificate_id"`
	UserID        string    `json:"user_id"`
	Type          string    `json:"type"`
	Data          string    `json:"data"`
	CreatedAt     time.Time `json:"created_at"`
}

type Outcome int

const (
	OutcomeNotEligible Outcome = iota
	OutcomeIssued
	OutcomeAlreadyIssued
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIssued:
		return "issued"
	case OutcomeAlreadyIssued:
		return "already_issued"
	default:
		return "not_eligible"
	}
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "issued":
		*o = OutcomeIssued
	case "already_issued":
		*o = OutcomeAlreadyIssued
	case "not_eligible":
		*o = OutcomeNotEligible
	default:
		return fmt.Errorf("unknown certificate outcome %q", text)
	}
	return nil
}

// Progress is the learner's standing on the policy for a course.
type Progress struct {
	CourseID        string `json:"course_id"`
	UserID          string `json:"user_id"`
	RequiredMiddle  int    `json:"required_middle"`
	Result          Result `json:"result"`
	CertificateHash string `json:"certificate_hash,omitempty"`
}

type SweepReport struct {
	Checked int
	Issued  int
	Failed  int
}
