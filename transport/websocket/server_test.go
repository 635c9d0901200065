package websocket

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-lobby/internal/config"
	"github.com/rocketscienceinc/tictactoe-lobby/internal/entity"
	"github.com/rocketscienceinc/tictactoe-lobby/internal/protocol"
	"github.com/rocketscienceinc/tictactoe-lobby/internal/session"
	"github.com/rocketscienceinc/tictactoe-lobby/internal/usecase"
)

const readTimeout = 2 * time.Second

type testServer struct {
	url      string
	registry *usecase.GameManager
}

func newTestServer(t *testing.T, allowedOrigins ...string) *testServer {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := usecase.NewGameManager(logger, nil)
	hub := session.NewHub(logger)

	conf := &config.Config{
		SocketPath:     "/api/ws",
		AllowedOrigins: allowedOrigins,
		Transport: config.Transport{
			WriteTimeout:   time.Second,
			PongTimeout:    10 * time.Second,
			PingInterval:   5 * time.Second,
			MaxMessageSize: 4096,
			SendBuffer:     16,
		},
	}

	server := New(logger, session.NewManager(logger, registry, hub, true), conf)
	httpServer := httptest.NewServer(server.Handler(ctx))
	t.Cleanup(httpServer.Close)

	return &testServer{
		url:      "ws" + strings.TrimPrefix(httpServer.URL, "http") + conf.SocketPath,
		registry: registry,
	}
}

func (that *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(that.url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg protocol.ClientMessage) {
	t.Helper()

	data, err := protocol.EncodeClientMessage(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func receive(t *testing.T, conn *websocket.Conn) protocol.ServerMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))

	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, messageType)

	msg, err := protocol.DecodeServerMessage(data)
	require.NoError(t, err)

	return msg
}

func receiveState(t *testing.T, conn *websocket.Conn) *entity.Game {
	t.Helper()

	msg := receive(t, conn)
	state, ok := msg.(protocol.GameState)
	require.True(t, ok, "expected GameState, got %T", msg)

	return state.Game
}

func TestServer_FullGame(t *testing.T) {
	srv := newTestServer(t)

	// Given: Alice created room1
	alice := srv.dial(t)
	send(t, alice, protocol.CreateGame{GameName: "room1", PlayerName: "Alice"})

	created, ok := receive(t, alice).(protocol.GameCreated)
	require.True(t, ok)
	assert.Len(t, receiveState(t, alice).Players, 1)

	// When: Bob looks at the lobby and joins
	bob := srv.dial(t)
	send(t, bob, protocol.GetAvailableGames{})

	available, ok := receive(t, bob).(protocol.AvailableGames)
	require.True(t, ok)
	require.Len(t, available.Games, 1)
	assert.Equal(t, entity.GameSummary{ID: created.GameID, Name: "room1", PlayerCount: 1}, available.Games[0])

	send(t, bob, protocol.JoinGame{GameName: "room1", PlayerName: "Bob"})
	joined, ok := receive(t, bob).(protocol.GameJoined)
	require.True(t, ok)
	assert.Equal(t, created.GameID, joined.GameID)

	// Then: both receive the full game
	assert.True(t, receiveState(t, bob).IsFull)
	assert.True(t, receiveState(t, alice).IsFull)

	// When: X takes the main diagonal
	moves := []struct {
		conn     *websocket.Conn
		row, col uint
	}{
		{alice, 0, 0}, {bob, 0, 1}, {alice, 1, 1}, {bob, 0, 2}, {alice, 2, 2},
	}

	var last *entity.Game
	for _, m := range moves {
		send(t, m.conn, protocol.MakeMove{Row: m.row, Col: m.col})

		last = receiveState(t, alice)
		assert.Equal(t, last, receiveState(t, bob))
	}

	// Then: X has won
	require.NotNil(t, last.Winner)
	assert.Equal(t, entity.PlayerX, *last.Winner)
	assert.True(t, last.GameOver)

	// When: Bob keeps playing
	send(t, bob, protocol.MakeMove{Row: 2, Col: 0})

	// Then: only Bob is told the game is over
	assert.Equal(t, protocol.Error{Message: "Game is over"}, receive(t, bob))
}

func TestServer_BadFramesKeepConnectionOpen(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t)

	// When: a malformed text frame and a binary frame arrive
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"CreateGame":`)))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}))

	// Then: the text frame is answered with an error and the binary one is ignored
	assert.Equal(t, protocol.Error{Message: "Bad request"}, receive(t, conn))

	send(t, conn, protocol.GetAvailableGames{})
	_, ok := receive(t, conn).(protocol.AvailableGames)
	assert.True(t, ok)
}

func TestServer_MoveBeforeJoining(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t)

	send(t, conn, protocol.MakeMove{Row: 1, Col: 1})

	assert.Equal(t, protocol.Error{Message: "Not in a game"}, receive(t, conn))
}

func TestServer_DisconnectReclaimsGame(t *testing.T) {
	srv := newTestServer(t)

	// Given: Alice waits alone in room1
	alice := srv.dial(t)
	send(t, alice, protocol.CreateGame{GameName: "room1", PlayerName: "Alice"})
	receive(t, alice)
	receive(t, alice)
	require.Equal(t, 1, srv.registry.Count())

	// When: she disconnects
	require.NoError(t, alice.Close())

	// Then: the game is eventually removed
	assert.Eventually(t, func() bool {
		return srv.registry.Count() == 0
	}, readTimeout, 10*time.Millisecond)
}

func TestServer_CheckOrigin(t *testing.T) {
	srv := newTestServer(t, "https://play.example.com")

	t.Run("Allowed origin", func(t *testing.T) {
		header := http.Header{"Origin": []string{"https://play.example.com"}}

		conn, resp, err := websocket.DefaultDialer.Dial(srv.url, header)
		require.NoError(t, err)
		_ = resp.Body.Close()
		_ = conn.Close()
	})

	t.Run("Foreign origin", func(t *testing.T) {
		header := http.Header{"Origin": []string{"https://evil.example.com"}}

		_, resp, err := websocket.DefaultDialer.Dial(srv.url, header)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, resp)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestClient_SendDropsWhenFull(t *testing.T) {
	// Given: a client whose writer is not running
	c := newClient(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, 1)
	require.NoError(t, c.Send(protocol.Error{Message: "first"}))

	// When: the buffer is full
	err := c.Send(protocol.Error{Message: "second"})

	// Then: the message is dropped instead of blocking
	require.ErrorIs(t, err, ErrSendBufferFull)

	// And: a closed client refuses everything
	c.close()
	require.ErrorIs(t, c.Send(protocol.Error{Message: "third"}), ErrConnectionClosed)
}
