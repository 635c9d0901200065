package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-lobby/internal/config"
	"github.com/rocketscienceinc/tictactoe-lobby/internal/session"
)

const shutdownTimeout = 5 * time.Second

type sessions interface {
	NewHandler(conn session.Outbound) *session.Handler
}

type Server struct {
	logger   *slog.Logger
	sessions sessions

	path      string
	transport config.Transport
	upgrader  websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

func New(logger *slog.Logger, sessions sessions, conf *config.Config) *Server {
	server := &Server{
		logger:    logger.With("component", "websocket"),
		sessions:  sessions,
		path:      conf.SocketPath,
		transport: conf.Transport,
		clients:   make(map[*client]struct{}),
	}

	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(conf.AllowedOrigins),
	}

	return server
}

// Handler routes the socket path to the upgrade handler. Connections live until the
// peer leaves or ctx is canceled.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(that.path, func(w http.ResponseWriter, r *http.Request) {
		that.serveWS(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server and blocks until ctx is canceled or the listener fails.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}

		that.closeAll()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) serveWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveWS")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		log.Warn("failed to upgrade connection", "error", err, "origin", r.Header.Get("Origin"))
		return
	}

	c := newClient(that.logger, conn, that.transport.SendBuffer)
	that.track(c)

	go c.writePump(that.transport.WriteTimeout, that.transport.PingInterval)

	handler := that.sessions.NewHandler(c)

	log.Info("connection established", "remote", r.RemoteAddr)

	defer func() {
		handler.Close(ctx)
		c.close()
		that.untrack(c)

		log.Info("connection closed", "remote", r.RemoteAddr, "gameID", handler.GameID())
	}()

	that.readPump(ctx, conn, handler)
}

func (that *Server) readPump(ctx context.Context, conn *websocket.Conn, handler *session.Handler) {
	log := that.logger.With("method", "readPump")

	conn.SetReadLimit(that.transport.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(that.transport.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(that.transport.PongTimeout))
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("unexpected close", "error", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			log.Debug("ignoring non-text frame", "type", messageType)
			continue
		}

		handler.HandleRaw(ctx, data)
	}
}

func (that *Server) track(c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.clients[c] = struct{}{}
}

func (that *Server) untrack(c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.clients, c)
}

// closeAll closes every open connection, hijacked sockets are not covered by Shutdown.
func (that *Server) closeAll() {
	that.mu.Lock()
	defer that.mu.Unlock()

	for c := range that.clients {
		c.close()
	}
}

// checkOrigin accepts every origin when allowed is empty. Requests without an Origin
// header are not from browsers and are always accepted.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		return slices.Contains(allowed, origin)
	}
}
