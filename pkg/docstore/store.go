package docstore

import (
	"context"
	"io"
	"os"

	wterrors "github.com/matzehuels/wordstree/pkg/errors"
)

// ErrNotFound is returned when a document does not exist.
//
// Implementations return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// Store reads and writes whole documents by key.
type Store interface {
	// Get returns the document stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores data under key, replacing any existing document.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the keys that start with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	io.Closer
}

// CheckKey validates a key for use with any Store.
func CheckKey(key string) error {
	return wterrors.ValidateKey(key)
}
