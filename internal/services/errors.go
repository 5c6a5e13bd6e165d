package services

import (
	"errors"
	"fmt"
)

// Rejection is a user-input or business-rule rejection. It carries the
// message shown to the user and never escalates past the command handler.
type Rejection struct {
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

// Reject builds a Rejection with a formatted user-facing message.
func Reject(format string, args ...any) error {
	return &Rejection{Message: fmt.Sprintf(format, args...)}
}

// AsRejection reports whether err is a Rejection and returns its message.
func AsRejection(err error) (string, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Message, true
	}
	return "", false
}

// ErrImpossibleState marks store-consistency failures: a record that must
// exist is absent. Always logged before being surfaced.
var ErrImpossibleState = errors.New("impossible database state")
