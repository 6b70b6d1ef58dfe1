package models

import "time"

// Direction classifies an email relative to the agent.
type Direction string

const (
	DirectionSent     Direction = "SENT"
	DirectionReceived Direction = "RECEIVED"
)

// EmailRecord is a CRM email row normalized at the client boundary:
// time-field and direction aliases are resolved before it leaves internal/crm.
type EmailRecord struct {
	MessageID    string    `json:"message_id"`
	Subject      string    `json:"subject"`
	Time         string    `json:"time"` // ISO timestamp from the CRM
	Content      string    `json:"content"`
	CleanContent string    `json:"clean_content"`
	Direction    Direction `json:"direction"`
}

// DaysSince returns whole days between the record's timestamp and now, or
// a large sentinel when the timestamp cannot be parsed.
func (e EmailRecord) DaysSince(now time.Time) int {
	d, ok := ParseCRMDate(e.Time)
	if !ok {
		return 999
	}
	return int(now.Sub(d).Hours() / 24)
}

// Date returns the YYYY-MM-DD prefix of the record's timestamp.
func (e EmailRecord) Date() string {
	if len(e.Time) < 10 {
		return e.Time
	}
	return e.Time[:10]
}
