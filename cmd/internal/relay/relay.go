package relay

import (
	"context"
	"fmt"

	"github.com/webhookd/backup-relay/cmd/internal/constants"
	"github.com/webhookd/backup-relay/cmd/internal/metrics"
	"github.com/webhookd/backup-relay/cmd/internal/relay/stage"
	"github.com/webhookd/backup-relay/cmd/internal/webhook"
	"go.uber.org/zap"
)

// messageContent is the notification posted for staged artifacts, it embeds
// the retrieval link of the staged artifact
const messageContent = "autobackup by <@1025369998438453298>\n(%s)"

type (
	// Router relays an artifact to one webhook of the pool, deciding from the
	// artifact size alone whether the artifact is attached directly or staged
	// at external storage first
	Router struct {
		log      *zap.SugaredLogger
		selector *webhook.Selector
		stager   stage.Uploader
		backend  Backend
		metrics  *metrics.Metrics
	}

	message struct {
		Content string `json:"content"`
	}
)

func NewRouter(log *zap.SugaredLogger, selector *webhook.Selector, stager stage.Uploader, backend Backend, metrics *metrics.Metrics) *Router {
	return &Router{
		log:      log,
		selector: selector,
		stager:   stager,
		backend:  backend,
		metrics:  metrics,
	}
}

// Relay sends the artifact at the given path to one webhook. Artifacts
// smaller than the direct upload limit are attached to the webhook call,
// artifacts at or above the limit are staged first and only the retrieval
// link is sent. The webhook is picked once per invocation, when staging fails
// it receives no call at all.
func (r *Router) Relay(ctx context.Context, path string, sizeBytes int64) error {
	url := r.selector.Pick()

	if sizeBytes < constants.MaxDirectUploadSize {
		r.log.Infow("relaying artifact directly", "size", sizeBytes)

		_, err := r.backend.UploadFile(ctx, url, "file", path)
		if err != nil {
			return fmt.Errorf("error relaying artifact to webhook: %w", err)
		}

		r.metrics.CountRoute("direct")

		return nil
	}

	r.log.Infow("artifact exceeds direct upload limit, staging", "size", sizeBytes, "limit", constants.MaxDirectUploadSize)

	link, err := r.stager.Upload(ctx, path)
	if err != nil {
		return err
	}

	_, err = r.backend.PostJSON(ctx, url, message{
		Content: fmt.Sprintf(messageContent, link),
	})
	if err != nil {
		return fmt.Errorf("error relaying staged link to webhook: %w", err)
	}

	r.metrics.CountRoute("staged")

	return nil
}
