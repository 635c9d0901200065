package session

import (
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-lobby/internal/entity"
	"github.com/rocketscienceinc/tictactoe-lobby/internal/protocol"
)

// Outbound delivers server messages to one connection. Send must not block.
type Outbound interface {
	Send(msg protocol.ServerMessage) error
}

// Hub tracks which connections are bound to which game and fans game state out to them.
// For every member it remembers the last version delivered.
type Hub struct {
	logger *slog.Logger

	mu       sync.Mutex
	members  map[string]map[Outbound]uint64
	bindings map[Outbound]string
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:   logger.With("component", "hub"),
		members:  make(map[string]map[Outbound]uint64),
		bindings: make(map[Outbound]string),
	}
}

// Join binds conn to gameID. A connection belongs to at most one game.
func (that *Hub) Join(gameID string, conn Outbound) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if current, ok := that.bindings[conn]; ok {
		that.leaveLocked(current, conn)
	}

	if that.members[gameID] == nil {
		that.members[gameID] = make(map[Outbound]uint64)
	}

	that.members[gameID][conn] = 0
	that.bindings[conn] = gameID
}

// Leave unbinds conn and reports the game it was bound to together with the number of
// connections still bound to that game. gameID is empty if conn was not bound.
func (that *Hub) Leave(conn Outbound) (string, int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	gameID, ok := that.bindings[conn]
	if !ok {
		return "", 0
	}

	return gameID, that.leaveLocked(gameID, conn)
}

func (that *Hub) leaveLocked(gameID string, conn Outbound) int {
	delete(that.bindings, conn)

	members := that.members[gameID]
	delete(members, conn)

	if len(members) == 0 {
		delete(that.members, gameID)
		return 0
	}

	return len(members)
}

// Publish sends a GameState snapshot to every connection bound to the game that has
// not seen this version or a newer one yet. Clients never see the board go backwards
// and never get the same state twice.
func (that *Hub) Publish(game *entity.Game) {
	log := that.logger.With("method", "Publish", "gameID", game.ID)

	that.mu.Lock()
	defer that.mu.Unlock()

	members := that.members[game.ID]

	msg := protocol.GameState{Game: game}
	for conn, delivered := range members {
		if game.Version <= delivered {
			log.Debug("snapshot already delivered", "version", game.Version, "delivered", delivered)
			continue
		}

		members[conn] = game.Version

		if err := conn.Send(msg); err != nil {
			log.Warn("failed to deliver game state", "error", err)
		}
	}
}

// Members returns the number of connections bound to the game.
func (that *Hub) Members(gameID string) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.members[gameID])
}
