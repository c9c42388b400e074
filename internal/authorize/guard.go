// Package authorize holds the shared admin authorization guard used by every
// privileged operation.
package authorize

import (
	"github.com/google/uuid"

	"vledger/pkg/errors"
)

// Caller identifies who is invoking an operation. It is established by the
// hosting environment (the auth middleware) and passed down explicitly.
type Caller struct {
	ID    uuid.UUID
	Admin bool
}

// RequireAdmin returns ErrUnauthorized unless the caller carries the
// administrative role.
func RequireAdmin(c Caller) error {
	if !c.Admin {
		return errors.ErrUnauthorized
	}
	return nil
}
