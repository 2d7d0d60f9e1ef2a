package models

import (
	"errors"

	"rolesync/internal/documents"
)

// Role is an authorization level carried both on the profile document and in
// the user's claim set.
type Role string

const (
	RoleGuest Role = "guest"
	RoleAdmin Role = "admin"
)

const (
	// DefaultCollection holds one profile document per user, keyed by user id.
	DefaultCollection = "users"
	// DefaultField is the profile field and claim key carrying the role.
	DefaultField = "role"
	// DefaultRole is assigned to every newly created user.
	DefaultRole = RoleGuest
	// UserIDParam names the path parameter that captures the user id.
	UserIDParam = "userId"
)

// Policy names where the role lives and what new users receive.
type Policy struct {
	Collection  string
	Field       string
	DefaultRole Role
}

// DefaultPolicy returns the "users" / "role" / "guest" policy.
func DefaultPolicy() Policy {
	return Policy{
		Collection:  DefaultCollection,
		Field:       DefaultField,
		DefaultRole: DefaultRole,
	}
}

// Validate rejects policies with empty parts.
func (p Policy) Validate() error {
	if p.Collection == "" {
		return errors.New("role policy: collection is required")
	}
	if p.Field == "" {
		return errors.New("role policy: field is required")
	}
	if p.DefaultRole == "" {
		return errors.New("role policy: default role is required")
	}
	return nil
}

// ProfileRef addresses the profile document of userID.
func (p Policy) ProfileRef(userID string) documents.Ref {
	return documents.Ref{Collection: p.Collection, ID: userID}
}

// ProfilePattern matches profile document paths, capturing the user id.
func (p Policy) ProfilePattern() string {
	return p.Collection + "/{" + UserIDParam + "}"
}
