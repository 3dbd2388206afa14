package eventbus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vaultwarden-hd/hdcore/eventbus"
)

func TestInProcessEventBusFansOutInOrder(t *testing.T) {
	bus := eventbus.NewInProcessEventBus()
	var received []eventbus.Kind

	bus.Subscribe(func(e eventbus.Event) { received = append(received, e.Kind) })
	bus.Subscribe(func(e eventbus.Event) { received = append(received, e.Kind) })

	bus.Publish(eventbus.Event{Kind: eventbus.KindBooted})

	assert.Equal(t, []eventbus.Kind{eventbus.KindBooted, eventbus.KindBooted}, received)
}

func TestInProcessEventBusNotRetroactive(t *testing.T) {
	bus := eventbus.NewInProcessEventBus()
	bus.Publish(eventbus.Event{Kind: eventbus.KindBooted})

	var received []eventbus.Kind
	bus.Subscribe(func(e eventbus.Event) { received = append(received, e.Kind) })

	assert.Empty(t, received)
}
