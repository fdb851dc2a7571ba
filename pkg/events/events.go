// Package events is a small synchronous publish/subscribe bus used to
// decouple the importer from the components that consume its output.
package events

import (
	"context"
	"sync"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/report"
)

// Topic names a channel on the bus.
type Topic string

const (
	TopicImportData     Topic = "import:data"
	TopicImportProgress Topic = "import:progress"
	TopicImportError    Topic = "import:error"
	TopicImportComplete Topic = "import:complete"
	TopicCanonicalized  Topic = "data:canonicalized"
)

// ImportData is published on TopicImportData. Handlers may replace Data; the
// value left after the last handler is what the importer continues with.
type ImportData struct {
	Data     any
	SourceID string
	Merge    bool
}

// Progress is published on TopicImportProgress.
type Progress struct {
	Message    string `json:"message"`
	Percentage int    `json:"percentage"`
	Warnings   int    `json:"warnings"`
}

// ImportError is published on TopicImportError.
type ImportError struct {
	Kind    report.Kind `json:"kind"`
	Message string      `json:"message"`
}

// Complete is published on TopicImportComplete in merge mode.
type Complete struct {
	Graph *common.Graph `json:"graph"`
}

// Canonicalized is published on TopicCanonicalized after every successful
// batch.
type Canonicalized struct {
	Graph  *common.Graph      `json:"graph"`
	Report *report.Report     `json:"report"`
	Source *common.DataSource `json:"source"`
}

// Handler receives a published payload. A returned error stops delivery to
// later handlers.
type Handler func(ctx context.Context, payload any) error

type subscription struct {
	id      uint64
	handler Handler
}

// Bus dispatches payloads to handlers in registration order.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	topics map[Topic][]subscription
}

func NewBus() *Bus {
	return &Bus{topics: make(map[Topic][]subscription)}
}

// Subscribe registers h on topic and returns a func that removes it.
func (b *Bus) Subscribe(topic Topic, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], subscription{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.topics[topic]
	for i, s := range subs {
		if s.id == id {
			b.topics[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.topics[topic]) == 0 {
		delete(b.topics, topic)
	}
}

// Publish calls every handler of topic in order and returns the first
// error. Handlers added or removed during a publish take effect on the next
// one.
func (b *Bus) Publish(ctx context.Context, topic Topic, payload any) error {
	b.mu.RLock()
	subs := b.topics[topic]
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}

// Subscribers returns the number of handlers registered on topic.
func (b *Bus) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
