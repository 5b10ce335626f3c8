// Package scan is the link between storage backends and inventory snapshots.
package scan

import (
	"context"

	"github.com/storagesnap/s3-storage-report/internal/snap"
)

// Scanner produces one snapshot per invocation by enumerating all buckets of
// a storage backend and counting their files and bytes.
type Scanner interface {
	Scan(ctx context.Context) (*snap.Snapshot, error)
}
