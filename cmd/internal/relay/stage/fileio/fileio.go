package fileio

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/webhookd/backup-relay/cmd/internal/relay"
	"go.uber.org/zap"
)

const (
	// DefaultEndpoint is the anonymous storage service artifacts are staged at
	DefaultEndpoint = "https://file.io"

	// staged artifacts expire after one week
	expiry = "1w"
)

// Uploader stages artifacts at an anonymous, size-unconstrained storage
// service and hands out the retrieval link from its response.
type Uploader struct {
	log      *zap.SugaredLogger
	backend  relay.Backend
	endpoint string
}

func New(log *zap.SugaredLogger, backend relay.Backend, endpoint string) *Uploader {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &Uploader{
		log:      log,
		backend:  backend,
		endpoint: endpoint,
	}
}

// Upload stages the file at the given path and returns the retrieval link. A
// response that is no valid json or carries no link is treated like a
// transport failure, there is nothing a caller could do differently.
func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	raw, err := u.backend.UploadFile(ctx, u.endpoint+"/?expires="+expiry, "file", path)
	if err != nil {
		return "", fmt.Errorf("error staging artifact: %w", err)
	}

	var resp struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Link == "" {
		u.log.Debugw("staging endpoint returned unusable response", "body", string(raw))
		return "", fmt.Errorf("staging endpoint returned no usable link")
	}

	return resp.Link, nil
}
