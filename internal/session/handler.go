// Package session drives one client connection through the lobby and into a game.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-lobby/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-lobby/internal/entity"
	"github.com/rocketscienceinc/tictactoe-lobby/internal/protocol"
)

type registry interface {
	CreateGame(ctx context.Context, gameName, playerName string) (string, string, error)
	JoinGame(ctx context.Context, gameName, playerName string) (string, string, error)
	ApplyMove(ctx context.Context, gameID string, row, col int, playerID string) error
	GetGame(gameID string) (*entity.Game, bool)
	ListOpenGames() []entity.GameSummary
	RemoveGame(gameID string) bool
}

// Manager creates handlers that share one registry and one hub.
type Manager struct {
	logger           *slog.Logger
	registry         registry
	hub              *Hub
	reclaimAbandoned bool
}

// NewManager creates a Manager. With reclaimAbandoned set, a game is removed from the
// registry once the last connection bound to it closes.
func NewManager(logger *slog.Logger, registry registry, hub *Hub, reclaimAbandoned bool) *Manager {
	return &Manager{
		logger:           logger,
		registry:         registry,
		hub:              hub,
		reclaimAbandoned: reclaimAbandoned,
	}
}

func (that *Manager) NewHandler(conn Outbound) *Handler {
	return &Handler{
		logger:           that.logger.With("component", "session"),
		registry:         that.registry,
		hub:              that.hub,
		conn:             conn,
		reclaimAbandoned: that.reclaimAbandoned,
	}
}

// Handler holds the state of one connection. It starts unbound and becomes bound to a
// game and a player after a successful CreateGame or JoinGame. It only returns to
// unbound when its game is no longer in the registry.
// A Handler is driven by the connection's reader goroutine only.
type Handler struct {
	logger           *slog.Logger
	registry         registry
	hub              *Hub
	conn             Outbound
	reclaimAbandoned bool

	gameID   string
	playerID string
}

func (that *Handler) IsBound() bool {
	return that.gameID != ""
}

func (that *Handler) GameID() string {
	return that.gameID
}

func (that *Handler) PlayerID() string {
	return that.playerID
}

// HandleRaw decodes one text frame and handles it. Frames that cannot be decoded are
// answered with an error and leave the connection open.
func (that *Handler) HandleRaw(ctx context.Context, data []byte) {
	msg, err := protocol.DecodeClientMessage(data)
	if err != nil {
		that.logger.Warn("failed to decode message", "method", "HandleRaw", "error", err)
		that.sendError(apperror.ErrBadRequest)
		return
	}

	that.Handle(ctx, msg)
}

func (that *Handler) Handle(ctx context.Context, msg protocol.ClientMessage) {
	switch m := msg.(type) {
	case protocol.CreateGame:
		that.handleCreateGame(ctx, m)
	case protocol.JoinGame:
		that.handleJoinGame(ctx, m)
	case protocol.MakeMove:
		that.handleMakeMove(ctx, m)
	case protocol.GetAvailableGames:
		that.send(protocol.AvailableGames{Games: that.registry.ListOpenGames()})
	default:
		that.logger.Warn("unsupported message", "method", "Handle", "type", fmt.Sprintf("%T", msg))
		that.sendError(apperror.ErrBadRequest)
	}
}

func (that *Handler) handleCreateGame(ctx context.Context, msg protocol.CreateGame) {
	log := that.logger.With("method", "handleCreateGame")

	if that.IsBound() {
		that.sendError(apperror.ErrAlreadyInGame)
		return
	}

	gameID, playerID, err := that.registry.CreateGame(ctx, msg.GameName, msg.PlayerName)
	if err != nil {
		log.Info("create game rejected", "game", msg.GameName, "code", apperror.Code(err))
		that.sendError(err)
		return
	}

	that.bind(gameID, playerID)
	that.send(protocol.GameCreated{GameID: gameID, PlayerID: playerID})
	that.publish(gameID)
}

func (that *Handler) handleJoinGame(ctx context.Context, msg protocol.JoinGame) {
	log := that.logger.With("method", "handleJoinGame")

	if that.IsBound() {
		that.sendError(apperror.ErrAlreadyInGame)
		return
	}

	gameID, playerID, err := that.registry.JoinGame(ctx, msg.GameName, msg.PlayerName)
	if err != nil {
		log.Info("join game rejected", "game", msg.GameName, "code", apperror.Code(err))
		that.sendError(err)
		return
	}

	that.bind(gameID, playerID)
	that.send(protocol.GameJoined{GameID: gameID, PlayerID: playerID})
	that.publish(gameID)
}

func (that *Handler) handleMakeMove(ctx context.Context, msg protocol.MakeMove) {
	log := that.logger.With("method", "handleMakeMove")

	if !that.IsBound() {
		that.sendError(apperror.ErrNotInGame)
		return
	}

	if err := that.registry.ApplyMove(ctx, that.gameID, clampCell(msg.Row), clampCell(msg.Col), that.playerID); err != nil {
		log.Info("move rejected", "gameID", that.gameID, "playerID", that.playerID, "code", apperror.Code(err))
		if errors.Is(err, apperror.ErrGameNotFound) {
			that.unbind()
		}
		that.sendError(err)
		return
	}

	that.publish(that.gameID)
}

// Close releases the connection's binding. The game is reclaimed when it was the last
// connection bound to it.
func (that *Handler) Close(_ context.Context) {
	gameID, remaining := that.hub.Leave(that.conn)
	if gameID == "" || remaining > 0 || !that.reclaimAbandoned {
		return
	}

	if that.registry.RemoveGame(gameID) {
		that.logger.Info("abandoned game reclaimed", "method", "Close", "gameID", gameID)
	}
}

func (that *Handler) bind(gameID, playerID string) {
	that.gameID = gameID
	that.playerID = playerID
	that.hub.Join(gameID, that.conn)
}

func (that *Handler) unbind() {
	that.hub.Leave(that.conn)
	that.gameID = ""
	that.playerID = ""
}

func (that *Handler) publish(gameID string) {
	game, ok := that.registry.GetGame(gameID)
	if !ok {
		that.logger.Warn("game vanished before publish", "method", "publish", "gameID", gameID)
		that.unbind()
		that.sendError(apperror.ErrGameNotFound)
		return
	}

	that.hub.Publish(game)
}

func (that *Handler) send(msg protocol.ServerMessage) {
	if err := that.conn.Send(msg); err != nil {
		that.logger.Warn("failed to send message", "method", "send", "error", err)
	}
}

func (that *Handler) sendError(err error) {
	that.send(protocol.Error{Message: apperror.Message(err)})
}

// clampCell maps wire coordinates onto int without wrapping huge values to valid cells.
func clampCell(v uint) int {
	if v > entity.BoardSize {
		return entity.BoardSize
	}
	return int(v)
}
