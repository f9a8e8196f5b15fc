package offline

import (
	"context"
	"net/http"
	"time"
)

// Response is a stored HTTP response
type Response struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Storage is an interface for named buckets of cached responses keyed by request URL
type Storage interface {
	// Open creates the bucket if it does not exist yet
	Open(ctx context.Context, bucket string) error
	// Names lists the buckets in creation order
	Names(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, bucket string) error
	// Put stores r under key, creating the bucket when needed
	Put(ctx context.Context, bucket string, key string, r *Response) error
	Match(ctx context.Context, bucket string, key string) (*Response, bool, error)
	// MatchAny searches every bucket in creation order
	MatchAny(ctx context.Context, key string) (*Response, bool, error)
}
