package response

type StandardApiResponse struct {
	Status     string      `json:"status"`           // "success" or "error"
	StatusCode int         `json:"status_code"`      // HTTP status code
	Message    string      `json:"message"`          // Human-readable message
	Data       interface{} `json:"data,omitempty"`   // Payload for success
	Errors     interface{} `json:"errors,omitempty"` // Validation or error details
}

// ErrorDetail is the errors payload for failed requests. Reason is a stable
// machine-readable code clients can switch on.
type ErrorDetail struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}
