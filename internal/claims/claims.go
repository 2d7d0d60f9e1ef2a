// Package claims holds the custom claim set the authentication service embeds
// in issued tokens, and the read-modify-write helper used to change one key
// without discarding the others.
package claims

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"rolesync/pkg/platform/sentinel"
)

// MaxSerializedBytes caps the JSON encoding of a claim set.
const MaxSerializedBytes = 1000

// ErrInvalidClaims is returned for claim sets the authentication service
// would refuse. It is never worth retrying.
var ErrInvalidClaims = fmt.Errorf("invalid claims: %w", sentinel.ErrInvalidInput)

// reserved names are set by the token issuer and cannot be overridden.
var reserved = map[string]struct{}{
	"acr": {}, "amr": {}, "at_hash": {}, "aud": {}, "auth_time": {}, "azp": {},
	"cnf": {}, "c_hash": {}, "exp": {}, "firebase": {}, "iat": {}, "iss": {},
	"jti": {}, "nbf": {}, "nonce": {}, "sub": {},
}

// ClaimSet is the custom claims attached to a user identity.
type ClaimSet map[string]any

// Clone returns a shallow copy of c. A nil receiver yields an empty set.
func (c ClaimSet) Clone() ClaimSet {
	out := make(ClaimSet, len(c))
	maps.Copy(out, c)
	return out
}

// Apply returns a copy of current with patch applied. A nil value in patch
// removes the key.
func Apply(current, patch ClaimSet) ClaimSet {
	out := current.Clone()
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// Validate rejects reserved claim names and oversized sets.
func Validate(c ClaimSet) error {
	for k := range c {
		if _, ok := reserved[k]; ok {
			return fmt.Errorf("%w: %q is reserved", ErrInvalidClaims, k)
		}
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
	if len(raw) > MaxSerializedBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidClaims, len(raw), MaxSerializedBytes)
	}
	return nil
}

// Store is the authentication service's claim-set API. Set replaces the whole
// set.
type Store interface {
	Get(ctx context.Context, userID string) (ClaimSet, error)
	Set(ctx context.Context, userID string, claims ClaimSet) error
}

// Updater is implemented by stores that can apply a read-modify-write
// atomically.
type Updater interface {
	Update(ctx context.Context, userID string, fn func(current ClaimSet) (ClaimSet, error)) error
}

// Merge applies patch to the user's current claim set and writes the result
// back, preserving claims the patch does not name. It returns the written set.
func Merge(ctx context.Context, store Store, userID string, patch ClaimSet) (ClaimSet, error) {
	var written ClaimSet
	mutate := func(current ClaimSet) (ClaimSet, error) {
		next := Apply(current, patch)
		if err := Validate(next); err != nil {
			return nil, err
		}
		written = next
		return next, nil
	}

	if u, ok := store.(Updater); ok {
		if err := u.Update(ctx, userID, mutate); err != nil {
			return nil, err
		}
		return written, nil
	}

	current, err := store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}
	next, err := mutate(current)
	if err != nil {
		return nil, err
	}
	if err := store.Set(ctx, userID, next); err != nil {
		return nil, fmt.Errorf("write claims: %w", err)
	}
	return next, nil
}
