package models

import "time"

// EmailContent is a generated subject/body pair.
type EmailContent struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Draft is a generated-but-unsent email awaiting human approval.
type Draft struct {
	ID        string       `json:"id"`
	Lead      Lead         `json:"lead"`
	Plan      Plan         `json:"plan"`
	Content   EmailContent `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
}

// Send outcome codes, distinguished so the approval UI can offer the right
// retry action.
const (
	SendResultSent    = "SENT"
	SendResultFailed  = "EMAIL_FAILED"
	SendResultSkipped = "SKIPPED"
)
