package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Subscribe(TopicImportProgress, func(context.Context, any) error {
		order = append(order, "first")
		return nil
	})
	bus.Subscribe(TopicImportProgress, func(context.Context, any) error {
		order = append(order, "second")
		return nil
	})
	bus.Subscribe(TopicImportError, func(context.Context, any) error {
		order = append(order, "other topic")
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), TopicImportProgress, Progress{Percentage: 10}))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPublishStopsAtFirstError(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")
	called := false
	bus.Subscribe(TopicCanonicalized, func(context.Context, any) error { return boom })
	bus.Subscribe(TopicCanonicalized, func(context.Context, any) error {
		called = true
		return nil
	})

	err := bus.Publish(context.Background(), TopicCanonicalized, Canonicalized{})
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestInterceptorReplacesData(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(TopicImportData, func(_ context.Context, p any) error {
		p.(*ImportData).Data = "replaced"
		return nil
	})
	var seen any
	bus.Subscribe(TopicImportData, func(_ context.Context, p any) error {
		seen = p.(*ImportData).Data
		return nil
	})

	payload := &ImportData{Data: "raw", SourceID: "s"}
	require.NoError(t, bus.Publish(context.Background(), TopicImportData, payload))
	assert.Equal(t, "replaced", seen)
	assert.Equal(t, "replaced", payload.Data)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	n := 0
	unsubscribe := bus.Subscribe(TopicImportComplete, func(context.Context, any) error {
		n++
		return nil
	})
	keep := bus.Subscribe(TopicImportComplete, func(context.Context, any) error { return nil })
	defer keep()

	require.NoError(t, bus.Publish(context.Background(), TopicImportComplete, Complete{}))
	unsubscribe()
	unsubscribe()
	require.NoError(t, bus.Publish(context.Background(), TopicImportComplete, Complete{}))

	assert.Equal(t, 1, n)
	assert.Equal(t, 1, bus.Subscribers(TopicImportComplete))
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	var calls []string
	var unsubscribe func()
	unsubscribe = bus.Subscribe(TopicImportProgress, func(context.Context, any) error {
		calls = append(calls, "a")
		unsubscribe()
		return nil
	})
	bus.Subscribe(TopicImportProgress, func(context.Context, any) error {
		calls = append(calls, "b")
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), TopicImportProgress, nil))
	require.NoError(t, bus.Publish(context.Background(), TopicImportProgress, nil))
	assert.Equal(t, []string{"a", "b", "b"}, calls)
}
