package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so handlers can decide between retrying and giving up.
//
// - ErrNotFound: document or claim set does not exist in store
// - ErrConflict: optimistic write lost a race and exhausted its retries
// - ErrUnavailable: service or resource temporarily unavailable
// - ErrInvalidInput: payload can never succeed as sent; retrying is pointless
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidInput = errors.New("invalid input")
)
