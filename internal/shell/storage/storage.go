// Package storage abstracts the object store that holds app icons. Icons are
// uploaded out of band; the portal only checks that they exist before an app
// may enter review.
package storage

import "context"

// ObjectStore answers existence queries against the icon bucket.
type ObjectStore interface {
	// Exists reports whether the object key is present. A missing or
	// inaccessible object is (false, nil); only transport-level failures
	// return an error.
	Exists(ctx context.Context, key string) (bool, error)
}
