package inflight

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroGroupIsIdle(t *testing.T) {
	var g Group
	require.NoError(t, g.Wait(context.Background()))
}

func TestWaitForDone(t *testing.T) {
	var g Group
	g.Add(2)
	idle := g.Idle()

	g.Done()
	select {
	case <-idle:
		t.Fatal("idle with one operation left")
	default:
	}
	g.Done()
	<-idle

	g.Add(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.Wait(ctx), context.DeadlineExceeded)
	g.Done()
	assert.NoError(t, g.Wait(context.Background()))
}

func TestAddDuringWait(t *testing.T) {
	var g Group
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = g.Wait(context.Background())
		}()
		go func() {
			defer wg.Done()
			g.Add(1)
			g.Done()
		}()
	}
	wg.Wait()
	assert.NoError(t, g.Wait(context.Background()))
}

func TestDoneWithoutAddPanics(t *testing.T) {
	var g Group
	assert.Panics(t, g.Done)
}
