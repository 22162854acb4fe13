package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcaster_PrimedAndLatestWins(t *testing.T) {
	b := New[int]()
	ch, unsubscribe := b.Subscribe(1)
	defer unsubscribe()

	assert.Equal(t, 1, <-ch)

	b.Publish(2)
	b.Publish(3)
	assert.Equal(t, 3, <-ch)

	select {
	case v := <-ch:
		t.Fatalf("unexpected value %d", v)
	default:
	}
}

func TestBroadcaster_UnsubscribeAndClose(t *testing.T) {
	b := New[string]()
	first, unsubscribe := b.Subscribe("a")
	second, _ := b.Subscribe("a")

	unsubscribe()
	unsubscribe()
	<-first
	_, ok := <-first
	assert.False(t, ok)

	b.Publish("b")
	assert.Equal(t, "b", <-second)

	b.Close()
	_, ok = <-second
	assert.False(t, ok)

	late, _ := b.Subscribe("c")
	_, ok = <-late
	assert.False(t, ok)
}
