// Package authz carries the caller's identity explicitly into every engine
// call and performs the single role capability check at the service boundary.
package authz

import (
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
)

// Actor is built from a verified token; its role is trusted for the token's lifetime.
type Actor struct {
	UserID uuid.UUID
	Role   models.Role
}

// Anonymous is the zero Actor used by public reads.
var Anonymous = Actor{}

func (a Actor) Authenticated() bool {
	return a.UserID != uuid.Nil
}

func (a Actor) Is(role models.Role) bool {
	return a.Authenticated() && a.Role == role
}

// Require fails with Forbidden unless the actor holds one of roles.
func (a Actor) Require(roles ...models.Role) error {
	if !a.Authenticated() {
		return apperr.New(apperr.KindForbidden, "authentication required")
	}
	for _, r := range roles {
		if a.Role == r {
			return nil
		}
	}
	return apperr.New(apperr.KindForbidden, "forbidden: insufficient role")
}
