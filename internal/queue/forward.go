package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wsmontes/linkchart/internal/util"
	"github.com/wsmontes/linkchart/pkg/events"
	"github.com/wsmontes/linkchart/pkg/logger"
)

// Forwarder relays data:canonicalized events to PubSubExchange. Events are
// held until Flush so that notices only go out once the graph is stored.
// Publishing is best effort: failures are logged and do not fail the import.
type Forwarder struct {
	pub     Publisher
	graphID string
	jobID   string

	mu      sync.Mutex
	pending []CanonicalizedMsg
}

func NewForwarder(pub Publisher, graphID, jobID string) *Forwarder {
	return &Forwarder{pub: pub, graphID: graphID, jobID: jobID}
}

// Handle is an events.Handler for TopicCanonicalized.
func (f *Forwarder) Handle(_ context.Context, payload any) error {
	ev, ok := payload.(events.Canonicalized)
	if !ok {
		return nil
	}
	msg := CanonicalizedMsg{
		GraphID: f.graphID,
		JobID:   f.jobID,
		Source:  ev.Source,
		Report:  ev.Report,
	}
	if ev.Report != nil {
		msg.Errors = ev.Report.Messages()
	}
	f.mu.Lock()
	f.pending = append(f.pending, msg)
	f.mu.Unlock()
	return nil
}

// Flush publishes the held events and returns how many went out.
func (f *Forwarder) Flush(ctx context.Context) int {
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()

	if f.pub == nil {
		return 0
	}
	sent := 0
	for _, msg := range pending {
		body, err := json.Marshal(msg)
		if err != nil {
			logger.Error("[Queue] Failed to encode canonicalized notice", "graph", f.graphID, "err", err)
			continue
		}
		err = util.RetryErrWithContext(ctx, 3, 200*time.Millisecond, func(ctx context.Context) error {
			return PublishTopic(ctx, f.pub, TopicCanonicalized, body)
		})
		if err != nil {
			logger.Warn("[Queue] Failed to publish canonicalized notice", "graph", f.graphID, "err", err)
			continue
		}
		sent++
	}
	return sent
}

// Discard drops held events, for a batch that was not stored.
func (f *Forwarder) Discard() {
	f.mu.Lock()
	f.pending = nil
	f.mu.Unlock()
}
