package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/tictactoe-lobby/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-lobby/internal/entity"
)

// gameRepo receives the final snapshot of every finished game.
type gameRepo interface {
	CreateOrUpdate(ctx context.Context, game *entity.Game) error
}

// GameManager is the registry of live games. All methods are safe for concurrent use;
// a single lock guards the games and the name index so both always agree.
type GameManager struct {
	logger   *slog.Logger
	gameRepo gameRepo
	newID    func() string

	mu    sync.RWMutex
	games map[string]*entity.Game
	names map[string]string
	order []string
}

// NewGameManager creates an empty registry. gameRepo may be nil, finished games are
// then only kept in memory.
func NewGameManager(logger *slog.Logger, gameRepo gameRepo) *GameManager {
	return &GameManager{
		logger:   logger.With("component", "game_manager"),
		gameRepo: gameRepo,
		newID:    uuid.NewString,

		games: make(map[string]*entity.Game),
		names: make(map[string]string),
	}
}

// CreateGame registers a new game under gameName and seats its creator as X.
func (that *GameManager) CreateGame(_ context.Context, gameName, playerName string) (string, string, error) {
	log := that.logger.With("method", "CreateGame")

	if err := validateNames(gameName, playerName); err != nil {
		return "", "", err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, exists := that.names[gameName]; exists {
		return "", "", fmt.Errorf("game %q: %w", gameName, apperror.ErrNameTaken)
	}

	game := entity.NewGame(that.newID(), gameName)

	player, err := game.AddPlayer(that.newID(), playerName)
	if err != nil {
		return "", "", fmt.Errorf("failed to seat creator: %w", err)
	}

	that.games[game.ID] = game
	that.names[gameName] = game.ID
	that.order = append(that.order, game.ID)

	log.Info("game created", "gameID", game.ID, "name", gameName, "playerID", player.ID)

	return game.ID, player.ID, nil
}

// JoinGame seats a player in the game registered under gameName.
func (that *GameManager) JoinGame(_ context.Context, gameName, playerName string) (string, string, error) {
	log := that.logger.With("method", "JoinGame")

	if err := validateNames(gameName, playerName); err != nil {
		return "", "", err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	gameID, ok := that.names[gameName]
	if !ok {
		return "", "", fmt.Errorf("game %q: %w", gameName, apperror.ErrGameNotFound)
	}

	game := that.games[gameID]

	player, err := game.AddPlayer(that.newID(), playerName)
	if err != nil {
		return "", "", fmt.Errorf("game %q: %w", gameName, err)
	}

	log.Info("player joined", "gameID", gameID, "playerID", player.ID)

	return gameID, player.ID, nil
}

// ApplyMove plays (row, col) for playerID. A move that ends the game hands the final
// snapshot to the repository once the lock is released.
func (that *GameManager) ApplyMove(ctx context.Context, gameID string, row, col int, playerID string) error {
	finished, err := that.applyMove(gameID, row, col, playerID)
	if err != nil {
		return err
	}

	if finished != nil {
		that.archive(ctx, finished)
	}

	return nil
}

func (that *GameManager) applyMove(gameID string, row, col int, playerID string) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, ok := that.games[gameID]
	if !ok {
		return nil, fmt.Errorf("game %s: %w", gameID, apperror.ErrGameNotFound)
	}

	if err := game.ApplyMove(row, col, playerID); err != nil {
		return nil, fmt.Errorf("failed to apply move: %w", err)
	}

	if game.GameOver {
		return game.Clone(), nil
	}

	return nil, nil
}

func (that *GameManager) archive(ctx context.Context, game *entity.Game) {
	log := that.logger.With("method", "archive", "gameID", game.ID)

	winner := "-"
	if game.Winner != nil {
		winner = string(*game.Winner)
	}
	log.Info("game finished", "winner", winner)

	if that.gameRepo == nil {
		return
	}

	if err := that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		log.Error("failed to archive game", "error", err)
	}
}

// GetGame returns a snapshot of the game, detached from the registry.
func (that *GameManager) GetGame(gameID string) (*entity.Game, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	game, ok := that.games[gameID]
	if !ok {
		return nil, false
	}

	return game.Clone(), true
}

// ListOpenGames returns the games that still have a free seat, oldest first.
func (that *GameManager) ListOpenGames() []entity.GameSummary {
	that.mu.RLock()
	defer that.mu.RUnlock()

	open := make([]entity.GameSummary, 0, len(that.order))
	for _, id := range that.order {
		if game := that.games[id]; !game.IsFull {
			open = append(open, game.Summary())
		}
	}

	return open
}

// RemoveGame drops a game and frees its name.
func (that *GameManager) RemoveGame(gameID string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, ok := that.games[gameID]
	if !ok {
		return false
	}

	delete(that.games, gameID)
	delete(that.names, game.Name)

	for i, id := range that.order {
		if id == gameID {
			that.order = append(that.order[:i], that.order[i+1:]...)
			break
		}
	}

	that.logger.Info("game removed", "method", "RemoveGame", "gameID", gameID, "name", game.Name)

	return true
}

func (that *GameManager) Count() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.games)
}

// validateNames rejects blank names. Names are otherwise used exactly as sent.
func validateNames(gameName, playerName string) error {
	if strings.TrimSpace(gameName) == "" || strings.TrimSpace(playerName) == "" {
		return apperror.ErrInvalidName
	}

	return nil
}
