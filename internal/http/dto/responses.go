package dto

type AuthResponse struct {
	Token   string `json:"token"`
	Profile any    `json:"profile"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type HistoryResponse struct {
	Entries  any      `json:"entries"`
	Filter   string   `json:"filter"`
	Warnings []string `json:"warnings,omitempty"`
}
