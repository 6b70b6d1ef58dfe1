package crm

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/apexhq/salespilot/pkg/models"
)

// Direction markers seen across CRM API versions for inbound email rows.
var receivedMarkers = map[string]bool{
	"received":     true,
	"incoming":     true,
	"from_contact": true,
	"1":            true,
}

// leadFromJSON maps a raw CRM lead row onto the internal lead model.
func leadFromJSON(row gjson.Result) models.Lead {
	return models.Lead{
		ID:                 row.Get("id").String(),
		FirstName:          row.Get("First_Name").String(),
		LastName:           row.Get("Last_Name").String(),
		Company:            row.Get("Company").String(),
		Email:              row.Get("Email").String(),
		Status:             row.Get("Reachout_Plan_Status").String(),
		Description:        row.Get("Description").String(),
		ProjectDescription: row.Get("Project_Description").String(),
		ProjectName:        row.Get("Project_Name").String(),
		LastConversation:   row.Get("Last_Conversation").String(),
		LastActivityTime:   row.Get("Last_Activity_Time").String(),
		NextAction:         row.Get("Next_Action").String(),
		NextActionDate:     row.Get("Next_Action_Date").String(),
		CreatedTime:        row.Get("Created_Time").String(),
	}
}

// emailRows extracts the email list from a response payload. Different API
// versions wrap the rows under different container keys.
func emailRows(payload []byte) []gjson.Result {
	for _, key := range []string{"Emails", "email_related_list", "data"} {
		if rows := gjson.GetBytes(payload, key); rows.IsArray() {
			return rows.Array()
		}
	}
	return nil
}

// emailFromJSON maps a raw email row onto the internal record, normalizing
// the message direction and timestamp field aliases.
func emailFromJSON(row gjson.Result) models.EmailRecord {
	return models.EmailRecord{
		MessageID: firstString(row, "message_id", "id"),
		Subject:   firstString(row, "subject", "Subject"),
		Time:      firstString(row, "time", "Message_Time", "sent_time"),
		Content:   firstString(row, "content", "summary"),
		Direction: directionOf(row),
	}
}

// directionOf classifies an email row as sent or received. Ambiguous or
// missing markers default to sent so the planner never mistakes our own
// outreach for a reply.
func directionOf(row gjson.Result) models.Direction {
	if sent := row.Get("sent"); sent.Exists() && !sent.Bool() {
		return models.DirectionReceived
	}

	for _, path := range []string{"status.0.type", "direction", "Direction"} {
		marker := strings.ToLower(strings.TrimSpace(row.Get(path).String()))
		if receivedMarkers[marker] {
			return models.DirectionReceived
		}
	}

	return models.DirectionSent
}

func firstString(row gjson.Result, paths ...string) string {
	for _, path := range paths {
		if v := row.Get(path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
