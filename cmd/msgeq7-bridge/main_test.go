package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgeq7-viz/src/source"
)

func newHub() *hub {
	return &hub{clients: make(map[chan string]struct{})}
}

func TestBroadcastSkipsFullClients(t *testing.T) {
	h := newHub()
	slow := h.add()
	for i := 0; i < clientQueue; i++ {
		h.broadcast("fill")
	}
	fast := h.add()

	done := make(chan struct{})
	go func() {
		h.broadcast("next")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client")
	}

	assert.Len(t, slow, clientQueue)
	assert.Equal(t, "fill", <-slow)
	assert.Equal(t, "next", <-fast)
}

func TestRemovedClientGetsNothing(t *testing.T) {
	h := newHub()
	ch := h.add()
	h.remove(ch)
	h.broadcast("line")
	assert.Empty(t, ch)
}

func TestPumpBroadcastsUntilEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.csv")
	require.NoError(t, os.WriteFile(path, []byte("1,2,3,4,5,6,7,8,9\n\nMode set to BOUNCE\n"), 0o644))
	src, err := source.OpenReplay(source.ReplayConfig{File: path})
	require.NoError(t, err)
	defer src.Close()

	h := newHub()
	ch := h.add()
	pump(context.Background(), src, h, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.Len(t, ch, 2)
	assert.Equal(t, "1,2,3,4,5,6,7,8,9", <-ch)
	assert.Equal(t, "Mode set to BOUNCE", <-ch)
}
