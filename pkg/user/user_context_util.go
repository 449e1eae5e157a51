package user

import (
	"context"
	"errors"

	"github.com/expentra/expentra/internal/apperr"
	log "github.com/sirupsen/logrus"
)

type contextKey string

const UserKey contextKey = "user"

var ErrNoUser = errors.New("user not found")

// CurrentId retrieves the current user's ID from the context. Returns ErrNoUser if ID not present in context.
func CurrentId(ctx context.Context) (int, error) {
	user, ok := ctx.Value(UserKey).(User)
	if !ok {
		log.Trace("user not found in context")
		return 0, ErrNoUser
	}
	return user.Id, nil
}

func CurrentUser(ctx context.Context) (User, error) {
	user, ok := ctx.Value(UserKey).(User)
	if !ok {
		log.Trace("user not found in context")
		return User{}, ErrNoUser
	}
	return user, nil
}

func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// RequireRole checks that the acting user carries the given role. All
// privileged ledger operations call this at the top instead of comparing
// role strings ad hoc.
func RequireRole(ctx context.Context, role Role) (User, error) {
	actor, err := CurrentUser(ctx)
	if err != nil {
		return User{}, apperr.Unauthorized("no acting user in context")
	}
	if actor.Role != role {
		return User{}, apperr.Unauthorized("user %d lacks role %q", actor.Id, role)
	}
	return actor, nil
}
