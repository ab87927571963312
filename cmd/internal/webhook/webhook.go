package webhook

import (
	"math/rand"
	"time"
)

// Selector picks a webhook from the configured pool, distributing outbound
// notifications uniformly across all endpoints.
type Selector struct {
	webhooks []string
	rnd      *rand.Rand
}

// NewSelector returns a selector over the given webhook pool. The random
// source can be injected for reproducible selection, when nil a time-seeded
// source is used.
func NewSelector(webhooks []string, rnd *rand.Rand) *Selector {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
	}

	return &Selector{
		webhooks: webhooks,
		rnd:      rnd,
	}
}

// Pick returns one webhook chosen uniformly at random, independent across
// calls. On an empty pool the empty string is returned, configuration
// validation prevents an empty pool from reaching this point.
func (s *Selector) Pick() string {
	if len(s.webhooks) == 0 {
		return ""
	}
	return s.webhooks[s.rnd.Intn(len(s.webhooks))]
}
