package response

// StandardApiResponse is the envelope every busline endpoint replies with.
// Clients read conflicting seats and field errors from Errors.
type StandardApiResponse struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
	Errors     interface{} `json:"errors,omitempty"` // conflicting_seats, field messages or a detail string
}
