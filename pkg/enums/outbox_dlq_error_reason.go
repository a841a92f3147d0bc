package enums

import "fmt"

// OutboxDLQErrorReason records why a deal event left the publish loop.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts marks an event that kept failing until the retry budget ran out.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable marks an event the broker or registry can never accept.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

// IsValid reports whether the value exists in outbox_dlq_error_reason_enum.
func (r OutboxDLQErrorReason) IsValid() bool {
	_, err := ParseOutboxDLQErrorReason(string(r))
	return err == nil
}

// ParseOutboxDLQErrorReason converts a stored value into a reason.
func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	switch OutboxDLQErrorReason(value) {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable:
		return OutboxDLQErrorReason(value), nil
	}
	return "", fmt.Errorf("invalid outbox dlq error reason %q", value)
}
