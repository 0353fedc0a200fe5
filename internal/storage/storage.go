// file: internal/storage/storage.go
// version: 1.0.0
// guid: 3a4b5c6d-7e8f-9a0b-1c2d-3e4f5a6b7c8d

package storage

import "context"

// Bucket names used by the filing scheme.
const (
	BucketInvoice = "INVOICE"
	BucketDOT     = "DOT"
)

// Object is one stored blob as returned by a listing.
type Object struct {
	Name string `json:"name"`
}

// Bucket is the narrow surface the pipeline needs from object storage:
// list names, upload bytes, check existence. Implementations own retries
// and timeouts; the core never performs I/O itself.
type Bucket interface {
	List(ctx context.Context, bucket string) ([]Object, error)
	Upload(ctx context.Context, bucket, name string, data []byte) error
	Exists(ctx context.Context, bucket, name string) (bool, error)
}

// CompanyDirectory supplies the canonical company roster. The roster is
// synced into the backing table by an external process; callers treat each
// listing as a point-in-time snapshot.
type CompanyDirectory interface {
	ListCompanies(ctx context.Context) ([]string, error)
}

// URLBuilder constructs the public URL for a stored object.
type URLBuilder interface {
	PublicURL(bucket, name string) string
}
