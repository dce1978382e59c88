package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Watch_Subscribe_FirstRecvReturnsCurrentValue(t *testing.T) {
	w := NewWatch(42)
	sub := w.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, ok := sub.Recv(ctx)
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func Test_Watch_Recv_BlocksUntilPublish(t *testing.T) {
	w := NewWatch("idle")
	sub := w.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, ok := sub.Recv(ctx)
	require.True(t, ok)

	done := make(chan string, 1)
	go func() {
		v, _ := sub.Recv(ctx)
		done <- v
	}()

	select {
	case <-done:
		t.Fatal("Recv resolved before Publish")
	case <-time.After(50 * time.Millisecond):
	}

	w.Publish("busy")

	select {
	case v := <-done:
		assert.Equal(t, "busy", v)
	case <-time.After(time.Second):
		t.Fatal("Recv did not unblock after Publish")
	}
}

func Test_Watch_Recv_CancelledContext(t *testing.T) {
	w := NewWatch(0)
	sub := w.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	_, _ = sub.Recv(ctx)

	cancel()
	_, ok := sub.Recv(ctx)
	assert.False(t, ok)
}

func Test_Watch_Latest_ReflectsLastPublish(t *testing.T) {
	w := NewWatch(1)
	w.Publish(2)
	w.Publish(3)
	assert.Equal(t, 3, w.Latest())
}

func Test_Watch_MultipleSubscribers_AllWake(t *testing.T) {
	w := NewWatch(0)
	subA := w.Subscribe()
	subB := w.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, _ = subA.Recv(ctx)
	_, _ = subB.Recv(ctx)

	resA := make(chan int, 1)
	resB := make(chan int, 1)
	go func() { v, _ := subA.Recv(ctx); resA <- v }()
	go func() { v, _ := subB.Recv(ctx); resB <- v }()

	w.Publish(7)

	assert.Equal(t, 7, <-resA)
	assert.Equal(t, 7, <-resB)
}
