package openaichat

import "fmt"

// SDKError is the base error type for all openaichat errors.
type SDKError struct {
	Message string
	Cause   error
}

func (e *SDKError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SDKError) Unwrap() error {
	return e.Cause
}

// ProviderError represents an error response from the model server.
// Error text carries the server's message and status, never credentials.
type ProviderError struct {
	SDKError
	StatusCode int
	ErrorCode  string
	Retryable  bool
	RetryAfter *float64
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s (status=%d, retryable=%v)", e.Message, e.StatusCode, e.Retryable)
}

// Concrete provider error types.

type AuthenticationError struct{ ProviderError }
type AccessDeniedError struct{ ProviderError }
type NotFoundError struct{ ProviderError }
type InvalidRequestError struct{ ProviderError }
type RateLimitError struct{ ProviderError }
type ServerError struct{ ProviderError }
type ContextLengthError struct{ ProviderError }

// Non-provider errors.

// NetworkError is a connection-level transport failure (refused, reset, DNS).
type NetworkError struct{ SDKError }

// RequestTimeoutError means the request exceeded its deadline.
type RequestTimeoutError struct{ SDKError }

// AbortError means the operation was cancelled cooperatively.
type AbortError struct{ SDKError }

// ConfigurationError means invalid options were supplied; it is raised before
// any turn starts.
type ConfigurationError struct{ SDKError }

// ValidationError means caller-provided input failed validation (empty
// prompt, malformed base64 image data, and so on).
type ValidationError struct{ SDKError }

// ProtocolDecodeError means one event-stream line could not be decoded. It is
// scoped to the offending line: the decoder remains usable and the caller
// decides whether to abort the stream.
type ProtocolDecodeError struct {
	SDKError
	Fragment string // offending line, truncated
}

func (e *ProtocolDecodeError) Error() string {
	return fmt.Sprintf("%s (fragment: %q)", e.SDKError.Error(), e.Fragment)
}

// AggregationError means a streamed tool call could not be reassembled into a
// complete, executable invocation. It aborts the turn's tool path only;
// finalized text blocks are preserved by the caller.
type AggregationError struct {
	SDKError
	Index      int
	ToolCallID string
}

func (e *AggregationError) Error() string {
	if e.ToolCallID != "" {
		return fmt.Sprintf("%s (index=%d, id=%s)", e.SDKError.Error(), e.Index, e.ToolCallID)
	}
	return fmt.Sprintf("%s (index=%d)", e.SDKError.Error(), e.Index)
}

// RetryExhaustedError wraps the last failure after all attempts were spent.
type RetryExhaustedError struct {
	SDKError
	Attempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s (attempts=%d)", e.SDKError.Error(), e.Attempts)
}

// ErrorFromStatusCode maps an HTTP status code to the appropriate error type.
func ErrorFromStatusCode(statusCode int, message, errorCode string, retryAfter *float64) error {
	pe := ProviderError{
		SDKError:   SDKError{Message: message},
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		RetryAfter: retryAfter,
	}

	switch statusCode {
	case 400, 422:
		pe.Retryable = false
		return &InvalidRequestError{ProviderError: pe}
	case 401:
		pe.Retryable = false
		return &AuthenticationError{ProviderError: pe}
	case 403:
		pe.Retryable = false
		return &AccessDeniedError{ProviderError: pe}
	case 404:
		pe.Retryable = false
		return &NotFoundError{ProviderError: pe}
	case 408:
		return &RequestTimeoutError{SDKError: SDKError{Message: message}}
	case 413:
		pe.Retryable = false
		return &ContextLengthError{ProviderError: pe}
	case 429:
		pe.Retryable = true
		return &RateLimitError{ProviderError: pe}
	case 500, 502, 503, 504:
		pe.Retryable = true
		return &ServerError{ProviderError: pe}
	default:
		if statusCode >= 500 {
			pe.Retryable = true
			return &ServerError{ProviderError: pe}
		}
		pe.Retryable = false
		return &pe
	}
}

// IsRetryable returns true if the error is safe to retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *ProviderError:
		return e.Retryable
	case *AuthenticationError:
		return false
	case *AccessDeniedError:
		return false
	case *NotFoundError:
		return false
	case *InvalidRequestError:
		return false
	case *ContextLengthError:
		return false
	case *ConfigurationError:
		return false
	case *ValidationError:
		return false
	case *ProtocolDecodeError:
		return false
	case *AggregationError:
		return false
	case *AbortError:
		return false
	case *RateLimitError:
		return true
	case *ServerError:
		return true
	case *NetworkError:
		return true
	case *RequestTimeoutError:
		return true
	default:
		// Unknown errors default to retryable.
		return true
	}
}
