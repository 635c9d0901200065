package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rocketscienceinc/tictactoe-lobby/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-lobby/internal/entity"
	"github.com/rocketscienceinc/tictactoe-lobby/internal/repository"
)

const (
	defaultResultsLimit = 20
	maxResultsLimit     = 100
)

type Handlers interface {
	PingHandler(w http.ResponseWriter, _ *http.Request)

	ListGames(w http.ResponseWriter, _ *http.Request)
	GetGame(w http.ResponseWriter, r *http.Request)

	ListResults(w http.ResponseWriter, r *http.Request)
	GetResult(w http.ResponseWriter, r *http.Request)
}

type lobby interface {
	ListOpenGames() []entity.GameSummary
	GetGame(gameID string) (*entity.Game, bool)
}

type results interface {
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	ListRecent(ctx context.Context, limit int64) ([]*entity.Game, error)
}

type handlers struct {
	logger  *slog.Logger
	lobby   lobby
	results results
}

// NewHandlers creates the read-only HTTP handlers. results may be nil when finished
// games are not archived.
func NewHandlers(logger *slog.Logger, lobby lobby, results results) Handlers {
	return &handlers{
		logger:  logger,
		lobby:   lobby,
		results: results,
	}
}

func (that *handlers) PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (that *handlers) ListGames(w http.ResponseWriter, _ *http.Request) {
	that.writeJSON(w, http.StatusOK, that.lobby.ListOpenGames())
}

func (that *handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	game, ok := that.lobby.GetGame(r.PathValue("id"))
	if !ok {
		that.writeError(w, http.StatusNotFound, apperror.ErrGameNotFound.Error())
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *handlers) ListResults(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "ListResults")

	limit := int64(defaultResultsLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			that.writeError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = min(parsed, maxResultsLimit)
	}

	if that.results == nil {
		that.writeJSON(w, http.StatusOK, []*entity.Game{})
		return
	}

	games, err := that.results.ListRecent(r.Context(), limit)
	if err != nil {
		log.Error("failed to list results", "error", err)
		that.writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	that.writeJSON(w, http.StatusOK, games)
}

func (that *handlers) GetResult(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "GetResult")

	if that.results == nil {
		that.writeError(w, http.StatusNotFound, apperror.ErrGameNotFound.Error())
		return
	}

	game, err := that.results.GetByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, repository.ErrGameNotFound) {
		that.writeError(w, http.StatusNotFound, apperror.ErrGameNotFound.Error())
		return
	}

	if err != nil {
		log.Error("failed to get result", "error", err)
		that.writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}

func (that *handlers) writeError(w http.ResponseWriter, status int, message string) {
	that.writeJSON(w, status, map[string]string{"error": message})
}
