package models

import "fmt"

// ProviderErrorKind classifies the failure outcome of a provider call.
type ProviderErrorKind string

const (
	// ErrKindTimeout covers deadline expiry, whether from the provider's own
	// request timeout or the owning task's overall timeout.
	ErrKindTimeout ProviderErrorKind = "timeout"
	// ErrKindTransient covers connection failures and 5xx-equivalent
	// responses; another attempt may succeed.
	ErrKindTransient ProviderErrorKind = "transient"
	// ErrKindRejected covers malformed requests, unknown methods and
	// 4xx-equivalent responses; retrying cannot help.
	ErrKindRejected ProviderErrorKind = "rejected"
	// ErrKindExhausted is reported once a retriable call has used up its
	// full retry budget.
	ErrKindExhausted ProviderErrorKind = "exhausted"
)

// Retriable reports whether another attempt at the same call may succeed.
func (k ProviderErrorKind) Retriable() bool {
	switch k {
	case ErrKindTimeout, ErrKindTransient:
		return true
	default:
		return false
	}
}

// ProviderError is the failure outcome of a single provider operation. It is
// contained inside the owning task's results and never aborts the process.
type ProviderError struct {
	Kind   ProviderErrorKind `json:"kind"`
	Detail string            `json:"detail"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Health is the advisory state reported by a provider's health endpoint.
// Dispatch never skips a provider because of it; it only biases planning.
type Health string

const (
	HealthOK       Health = "ok"
	HealthDegraded Health = "degraded"
	HealthDown     Health = "down"
)
