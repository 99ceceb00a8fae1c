package frame

// ExitCodeClass classifies how an invocation terminated.
type ExitCodeClass string

const (
	ExitSuccess           ExitCodeClass = "SUCCESS"
	ExitInvalidRequest    ExitCodeClass = "INVALID_REQUEST"
	ExitCapabilityFailure ExitCodeClass = "CAPABILITY_FAILURE"
	ExitQuotaExceeded     ExitCodeClass = "QUOTA_EXCEEDED"
	ExitPolicyDenied      ExitCodeClass = "POLICY_DENIED"
	ExitInternalError     ExitCodeClass = "INTERNAL_ERROR"
)

// OutcomeError is the structured error form of an invocation result.
type OutcomeError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// OutputResult holds either a success value or a structured error. A nil
// Error means success; Success may be empty or nil.
type OutputResult struct {
	Success map[string]any `json:"success"`
	Error   *OutcomeError  `json:"error,omitempty"`
}

// SuccessResult wraps a success value.
func SuccessResult(value map[string]any) OutputResult {
	return OutputResult{Success: value}
}

// ErrorResult wraps a structured error.
func ErrorResult(code, message string, details map[string]any) OutputResult {
	return OutputResult{Error: &OutcomeError{Code: code, Message: message, Details: details}}
}

// IsError reports whether the result carries a structured error.
func (r OutputResult) IsError() bool {
	return r.Error != nil
}

// DefaultExitClass maps an outcome to an exit class for producers that did
// not record one explicitly.
func (r OutputResult) DefaultExitClass() ExitCodeClass {
	if r.IsError() {
		return ExitCapabilityFailure
	}
	return ExitSuccess
}
