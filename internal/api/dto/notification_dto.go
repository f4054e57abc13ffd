package dto

// NoticeRequest posts a monitoring or system notice.
type NoticeRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NoticeResponse acknowledges an accepted notice.
type NoticeResponse struct {
	EventID string `json:"event_id"`
}
