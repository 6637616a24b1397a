// Package idfactory provides the production trace.IdFactory: UUID v4
// strings generated by google/uuid. Session ids are an opaque string
// contract; UUID v4 is simply the variant real callers want. Callers that
// want a shared generator pass one explicitly rather than reaching for a
// singleton.
package idfactory

import "github.com/google/uuid"

// UUIDFactory implements trace.IdFactory using random UUID v4s.
type UUIDFactory struct{}

// NewID returns a freshly generated UUID v4 string.
func (UUIDFactory) NewID() string {
	return uuid.NewString()
}
