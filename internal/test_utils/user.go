package test_utils

import (
	"context"

	"github.com/expentra/expentra/pkg/user"
)

// TestSuperadmin is a canonical privileged user for tests.
var TestSuperadmin = user.User{
	Id:          1,
	Uid:         "test-superadmin-uid",
	Username:    "test_admin",
	DisplayName: "Test Admin",
	Role:        user.RoleSuperadmin,
	Location:    "Warsaw",
}

// TestMember is a canonical unprivileged user for tests.
var TestMember = user.User{
	Id:          2,
	Uid:         "test-member-uid",
	Username:    "test_member",
	DisplayName: "Test Member",
	Role:        user.RoleUser,
	Location:    "Warsaw",
}

// SuperadminContext returns a context acting as TestSuperadmin.
func SuperadminContext() context.Context {
	return user.WithUser(context.Background(), TestSuperadmin)
}

// MemberContext returns a context acting as TestMember.
func MemberContext() context.Context {
	return user.WithUser(context.Background(), TestMember)
}
