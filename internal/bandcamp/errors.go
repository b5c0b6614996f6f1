package bandcamp

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIdentity is returned when upstream rejects the identity
	// token on a user-scoped endpoint.
	ErrInvalidIdentity = errors.New("invalid identity token")

	// ErrNoData is returned when a response lacks the expected structure:
	// wrong content type, missing embedded JSON, undecodable payload.
	ErrNoData = errors.New("no data in response")

	// ErrNotFound is returned when a lookup matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrNoIdentity is returned by user-scoped calls when no account is
	// configured.
	ErrNoIdentity = errors.New("no account configured")
)

// UpstreamError is an error reported by Bandcamp inside a JSON body.
type UpstreamError struct {
	Endpoint string
	Message  string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("bandcamp %s: %s", e.Endpoint, e.Message)
}
