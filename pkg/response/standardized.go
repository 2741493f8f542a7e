package response

import (
	"time"

	"ingestion-gateway/internal/utils"
)

// StandardResponse represents a standardized API response
type StandardResponse struct {
	Success       bool        `json:"success"`
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	Message       string      `json:"message,omitempty"`
	CorrelationID string      `json:"correlationId"`
	Timestamp     time.Time   `json:"timestamp"`
}

// ErrorInfo represents error information in responses
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse creates a successful response
func SuccessResponse(data interface{}, correlationID string) *StandardResponse {
	return &StandardResponse{
		Success:       true,
		Data:          data,
		CorrelationID: correlationID,
		Timestamp:     time.Now(),
	}
}

// SuccessDataMessageResponse carries both a payload and a human-readable summary
func SuccessDataMessageResponse(data interface{}, message, correlationID string) *StandardResponse {
	resp := SuccessResponse(data, correlationID)
	resp.Message = message
	return resp
}

// ErrorResponse creates an error response
func ErrorResponse(code, message, details, correlationID string) *StandardResponse {
	return &StandardResponse{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
		CorrelationID: correlationID,
		Timestamp:     time.Now(),
	}
}

// OperationFailedResponse reports a failed operation. The message is
// "<operation> failed: <cause>" and the code is the error's kind.
func OperationFailedResponse(operation string, err error, correlationID string) *StandardResponse {
	return ErrorResponse(utils.KindOf(err), utils.OperationFailed(operation, err), "", correlationID)
}

// ValidationErrorResponse creates a validation error response
func ValidationErrorResponse(message string, correlationID string) *StandardResponse {
	return ErrorResponse(utils.ErrCodeValidationFailed, message, "", correlationID)
}

// InvalidRequestResponse reports a body or query that could not be bound
func InvalidRequestResponse(details string, correlationID string) *StandardResponse {
	return ErrorResponse(utils.ErrCodeInvalidRequest, "Invalid request", details, correlationID)
}
