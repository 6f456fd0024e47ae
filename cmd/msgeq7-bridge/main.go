// Command msgeq7-bridge publishes a line source (the board's serial port or
// the simulator) to websocket clients on /ws, and forwards text messages from
// clients back to the source as device commands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"msgeq7-viz/src/config"
	"msgeq7-viz/src/logging"
	"msgeq7-viz/src/source"
)

const (
	clientQueue  = 256
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// hub fans lines out to connected clients; slow clients lose lines
type hub struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
}

func (h *hub) add() chan string {
	ch := make(chan string, clientQueue)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) remove(ch chan string) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

func (h *hub) broadcast(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- line:
		default:
		}
	}
}

func main() {
	if err := config.LoadEnvFile(); err != nil {
		slog.Warn("failed to load .env file", "err", err)
	}

	addr := flag.String("addr", ":8765", "listen address")
	kind := flag.String("source", source.KindSim, "input: serial or sim")
	port := flag.String("port", "", "serial port")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("MSGEQ7_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.Source.Kind = *kind
	if *port != "" {
		cfg.Source.Serial.Port = *port
	}
	if cfg.Source.Kind != source.KindSerial && cfg.Source.Kind != source.KindSim {
		fmt.Fprintf(os.Stderr, "unsupported source %q\n", cfg.Source.Kind)
		os.Exit(2)
	}

	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := source.Open(ctx, cfg.Source, log)
	if err != nil {
		log.Error("open source failed", "err", err)
		os.Exit(1)
	}
	defer src.Close()
	log.Info("bridging", "source", source.Describe(cfg.Source), "addr", *addr)

	h := &hub{clients: make(map[chan string]struct{})}
	var cmdMu sync.Mutex
	sendCommand := func(cmd string) error {
		sender, ok := src.(source.CommandSender)
		if !ok {
			return source.ErrUnsupported
		}
		cmdMu.Lock()
		defer cmdMu.Unlock()
		return sender.Send(cmd)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveClient(w, r, h, sendCommand, log)
	})
	srv := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen failed", "err", err)
			stop()
		}
	}()

	pump(ctx, src, h, log)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", "err", err)
	}
	log.Info("bridge stopped")
}

// pump reads the source until ctx ends or the source fails
func pump(ctx context.Context, src source.LineSource, h *hub, log *slog.Logger) {
	for {
		line, err := src.ReadLine(ctx)
		switch {
		case err == nil:
			if line != "" {
				h.broadcast(line)
			}
		case ctx.Err() != nil:
			return
		case errors.Is(err, io.EOF):
			log.Info("source exhausted")
			return
		default:
			log.Error("read failed", "err", err)
			return
		}
	}
}

func serveClient(w http.ResponseWriter, r *http.Request, h *hub, send func(string) error, log *slog.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	log.Info("client connected", "remote", remote)
	lines := h.add()
	defer h.remove(lines)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			cmd := string(msg)
			if err := send(cmd); err != nil {
				log.Warn("command failed", "cmd", cmd, "err", err)
				continue
			}
			log.Info("command forwarded", "cmd", cmd, "remote", remote)
		}
	}()

	for {
		select {
		case <-done:
			log.Info("client disconnected", "remote", remote)
			return
		case line := <-lines:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line+"\n")); err != nil {
				log.Warn("write failed", "remote", remote, "err", err)
				return
			}
		}
	}
}
