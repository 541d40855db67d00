// Package credentials persists the serialized session record in the local
// sqlite database as an opaque key/value blob.
package credentials

import "context"

// SessionKey is the well-known key under which the serialized session
// record is stored.
const SessionKey = "session"

// Repository is a small key/value store for credential material.
// Get returns (nil, nil) when the key is absent.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
