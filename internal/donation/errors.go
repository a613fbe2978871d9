package donation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNoPending means the caller has no pending donation in scope
	// ("no transaction data").
	ErrNoPending = errors.New("no transaction data")

	// ErrInvalidState means the requested transition is not allowed from
	// the attempt's current state.
	ErrInvalidState = errors.New("invalid donation state")

	// ErrAttemptNotFound means no payment attempt exists for the given
	// correlation id.
	ErrAttemptNotFound = errors.New("payment attempt not found")

	// ErrAlreadySettled means the payment attempt was committed before;
	// the ledger must not be credited a second time.
	ErrAlreadySettled = errors.New("payment attempt already settled")

	// ErrAttemptNotRecorded means the gateway accepted a push but the
	// durable attempt row could not be written.
	ErrAttemptNotRecorded = errors.New("payment attempt could not be recorded")
)

// FieldErrors maps form field names to user-correctable validation messages.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}

	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, fe[f]))
	}

	return strings.Join(parts, "; ")
}
