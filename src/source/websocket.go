package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// WSPingInterval WebSocket ping interval
	WSPingInterval = 30 * time.Second
	// WSReadTimeout read deadline, refreshed by every message or pong
	WSReadTimeout = 60 * time.Second
	// WSWriteTimeout write deadline
	WSWriteTimeout = 10 * time.Second
)

// WebSocket receives frames relayed over a websocket, e.g. from a board
// bridging its serial output over Wi-Fi or from cmd/msgeq7-bridge
type WebSocket struct {
	cfg       WebSocketConfig
	log       *slog.Logger
	conn      *websocket.Conn
	connMutex sync.RWMutex
	writeMu   sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	lines     chan string
	dropped   atomic.Uint64
	done      chan struct{}
}

// DialWebSocket connects to the bridge and starts receiving.
// The first dial must succeed; later disconnects are retried every
// ReconnectInterval until Close.
func DialWebSocket(ctx context.Context, cfg WebSocketConfig, log *slog.Logger) (*WebSocket, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	wctx, cancel := context.WithCancel(context.Background())
	ws := &WebSocket{
		cfg:    cfg,
		log:    log,
		ctx:    wctx,
		cancel: cancel,
		lines:  make(chan string, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	if err := ws.connect(ctx); err != nil {
		cancel()
		return nil, err
	}
	go ws.run()
	go ws.pingLoop()
	return ws, nil
}

func (ws *WebSocket) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, ws.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", ws.cfg.URL, err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(WSReadTimeout))
	})

	ws.connMutex.Lock()
	ws.conn = conn
	ws.connMutex.Unlock()
	return nil
}

// run reads until Close, reconnecting after unexpected disconnects
func (ws *WebSocket) run() {
	defer close(ws.done)
	for {
		err := ws.readLoop()
		if ws.ctx.Err() != nil {
			return
		}
		ws.log.Warn("websocket disconnected", "err", err, "retry_in", ws.cfg.ReconnectInterval)

		for {
			select {
			case <-ws.ctx.Done():
				return
			case <-time.After(ws.cfg.ReconnectInterval):
			}
			if err := ws.connect(ws.ctx); err != nil {
				ws.log.Warn("websocket reconnect failed", "err", err)
				continue
			}
			ws.log.Info("websocket reconnected", "url", ws.cfg.URL)
			break
		}
	}
}

func (ws *WebSocket) readLoop() error {
	ws.connMutex.RLock()
	conn := ws.conn
	ws.connMutex.RUnlock()
	if conn == nil {
		return errors.New("not connected")
	}
	defer func() {
		conn.Close()
		ws.connMutex.Lock()
		if ws.conn == conn {
			ws.conn = nil
		}
		ws.connMutex.Unlock()
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(WSReadTimeout))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		ws.enqueue(string(data))
	}
}

// enqueue splits a message into lines; when the reader falls behind the
// newest lines are dropped
func (ws *WebSocket) enqueue(msg string) {
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		select {
		case ws.lines <- line:
		default:
			if n := ws.dropped.Add(1); n%1000 == 1 {
				ws.log.Warn("websocket queue full, dropping lines", "dropped", n)
			}
		}
	}
}

func (ws *WebSocket) pingLoop() {
	ticker := time.NewTicker(WSPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ws.ctx.Done():
			return
		case <-ticker.C:
			if err := ws.write(websocket.PingMessage, nil); err != nil {
				ws.log.Debug("websocket ping failed", "err", err)
			}
		}
	}
}

func (ws *WebSocket) write(msgType int, data []byte) error {
	ws.connMutex.RLock()
	conn := ws.conn
	ws.connMutex.RUnlock()
	if conn == nil {
		return errors.New("websocket not connected")
	}

	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(WSWriteTimeout))
	return conn.WriteMessage(msgType, data)
}

// ReadLine returns the next queued line, or an empty line after PollTimeout
func (ws *WebSocket) ReadLine(ctx context.Context) (string, error) {
	timer := time.NewTimer(ws.cfg.PollTimeout)
	defer timer.Stop()

	select {
	case line := <-ws.lines:
		return line, nil
	case <-timer.C:
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-ws.ctx.Done():
		return "", io.EOF
	}
}

// Send forwards a device command to the bridge
func (ws *WebSocket) Send(cmd string) error {
	if err := ws.write(websocket.TextMessage, []byte(cmd)); err != nil {
		return fmt.Errorf("send %q: %w", cmd, err)
	}
	return nil
}

// Dropped returns how many lines were discarded because the queue was full
func (ws *WebSocket) Dropped() uint64 {
	return ws.dropped.Load()
}

// IsConnected checks whether a connection is currently open
func (ws *WebSocket) IsConnected() bool {
	ws.connMutex.RLock()
	defer ws.connMutex.RUnlock()
	return ws.conn != nil
}

// Close stops reconnecting and closes the connection
func (ws *WebSocket) Close() error {
	ws.cancel()

	ws.connMutex.RLock()
	conn := ws.conn
	ws.connMutex.RUnlock()

	if conn != nil {
		ws.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		ws.writeMu.Unlock()
		conn.Close()
	}
	<-ws.done
	return nil
}
