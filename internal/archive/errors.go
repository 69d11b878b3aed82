package archive

import (
	"fmt"

	"github.com/google/uuid"
)

// TransientError marks timeouts and connectivity failures against the
// database or object store. The tier is unchanged and the next run retries
// the same idempotent step.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient %s failure: %v", e.Op, e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

func transientErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IntegrityError marks a verification failure (checksum or row-count
// mismatch) detected before any destructive delete. The migration aborts
// with both copies intact.
type IntegrityError struct {
	SessionID uuid.UUID
	Reason    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for session %s: %s", e.SessionID, e.Reason)
}

// AuditBlockedError is raised only on the deletion path: the audit write
// failed, so the physical delete was withheld.
type AuditBlockedError struct {
	SessionID uuid.UUID
	Err       error
}

func (e *AuditBlockedError) Error() string {
	return fmt.Sprintf("audit write blocked deletion of session %s: %v", e.SessionID, e.Err)
}
func (e *AuditBlockedError) Unwrap() error { return e.Err }
