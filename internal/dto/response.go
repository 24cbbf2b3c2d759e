package dto

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message" example:"Login successful"`
	Data    any    `json:"data,omitempty"`
}

// Success builds a success envelope. data may be nil.
func Success(message string, data any) APIResponse {
	return APIResponse{Status: StatusSuccess, Message: message, Data: data}
}

// Failure builds an error envelope.
func Failure(message string) APIResponse {
	return APIResponse{Status: StatusError, Message: message}
}
