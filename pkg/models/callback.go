package models

// CallbackAction type of inline-button callback action
type CallbackAction string

const (
	CallbackApprove  CallbackAction = "ap"
	CallbackEdit     CallbackAction = "ed"
	CallbackSkip     CallbackAction = "sk"
	CallbackRetryGen CallbackAction = "rg"
)

// CallbackData structure for inline button callbacks. Kept short: Telegram
// caps callback data at 64 bytes and draft IDs are 36-char UUIDs.
type CallbackData struct {
	Action  CallbackAction `json:"a"`
	DraftID string         `json:"d"`
}
