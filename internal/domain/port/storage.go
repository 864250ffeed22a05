package port

import "context"

type ObjectStorage interface {
	// GetBytes fetches a whole object into memory.
	GetBytes(ctx context.Context, key string) ([]byte, error)

	// PutFile uploads a local file under the given key.
	PutFile(ctx context.Context, localPath, key string) error

	// Exists reports whether an object is present under the given key.
	Exists(ctx context.Context, key string) (bool, error)
}
