package brew

import "fmt"

// ErrorResponse represents a protocol rejection to return to the client
// (value type). Every rejection is recovered locally; none crashes a
// worker.
type ErrorResponse struct {
	Status  int
	Code    string
	Message string
}

// Common rejections
var (
	ErrAlreadyBrewing = ErrorResponse{
		Status:  503,
		Code:    "pot_busy",
		Message: "Pot is busy",
	}
	ErrNotBrewing = ErrorResponse{
		Status:  400,
		Code:    "not_brewing",
		Message: "No beverage is being brewed by this pot",
	}
	ErrMissingContact = ErrorResponse{
		Status:  400,
		Code:    "missing_contact",
		Message: `Please set "Email" header in your request to your email address`,
	}
	ErrNotifyFailed = ErrorResponse{
		Status:  500,
		Code:    "notify_failed",
		Message: "Something went wrong",
	}
	ErrInternal = ErrorResponse{
		Status:  500,
		Code:    "internal_error",
		Message: "Something went wrong",
	}
	ErrContentType = ErrorResponse{
		Status: 400,
		Code:   "wrong_content_type",
	}
	ErrMalformedCommand = ErrorResponse{
		Status: 400,
		Code:   "malformed_command",
	}
	ErrMethodNotAllowed = ErrorResponse{
		Status: 405,
		Code:   "method_not_allowed",
	}
)

// ErrUnsupportedVariant names the variant the pot cannot brew.
func ErrUnsupportedVariant(variant string) ErrorResponse {
	return ErrorResponse{
		Status:  503,
		Code:    "unsupported_variant",
		Message: fmt.Sprintf("%q is not supported for this pot", variant),
	}
}

// ErrTrafficTooLow reports the measured count against the threshold.
func ErrTrafficTooLow(variant string, count, threshold int) ErrorResponse {
	return ErrorResponse{
		Status:  424,
		Code:    "traffic_too_low",
		Message: fmt.Sprintf("Traffic too low to brew %q tea: %d/%d", variant, count, threshold),
	}
}
