package dto

type LinkAccountRequest struct {
	Code string `json:"code"`
}

type SelectCalendarsRequest struct {
	Calendars []string `json:"calendars"`
}

type LinkedAccountResponse struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email,omitempty"`
	Provider  string   `json:"provider,omitempty"`
	Calendars []string `json:"calendars"`
	LinkedAt  string   `json:"linked_at"`
}
