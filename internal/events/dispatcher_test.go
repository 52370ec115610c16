package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherInvokesInOrder(t *testing.T) {
	d := NewInMemoryDispatcher()
	var order []string

	d.Subscribe(EventRequestCreated, func(context.Context, Event) error {
		order = append(order, "first")
		return nil
	})
	d.Subscribe(EventRequestCreated, func(context.Context, Event) error {
		order = append(order, "second")
		return nil
	})
	d.Subscribe(EventNoteAdded, func(context.Context, Event) error {
		order = append(order, "unrelated")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventRequestCreated}))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatcherSwallowsHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	var reached bool

	d.Subscribe(EventRequestUpdated, func(context.Context, Event) error {
		return errors.New("handler blew up")
	})
	d.Subscribe(EventRequestUpdated, func(context.Context, Event) error {
		reached = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventRequestUpdated})
	assert.NoError(t, err)
	assert.True(t, reached, "later handlers still run after a failure")
}

func TestDispatcherNoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventCompanyChanged}))
}
