package stage

import "context"

// Uploader stages an artifact at external storage and returns an ephemeral
// retrieval link for it. Implementations must not retry and must not validate
// that the returned link is reachable.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}
