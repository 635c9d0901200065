package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-lobby/internal/apperror"
)

// Symbol is the content of a board cell and the mark assigned to a player.
type Symbol string

const (
	Empty   Symbol = "Empty"
	PlayerX Symbol = "X"
	PlayerO Symbol = "O"
)

const (
	BoardSize  = 3
	MaxPlayers = 2
)

// WinLines lists every row, column and diagonal as (row, col) pairs.
var WinLines = [8][3][2]int{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

type Board [BoardSize][BoardSize]Symbol

type Game struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Board       Board     `json:"board"`
	CurrentTurn Symbol    `json:"current_player"`
	Players     []*Player `json:"players"`
	Winner      *Symbol   `json:"winner"`
	IsFull      bool      `json:"is_full"`
	GameOver    bool      `json:"game_over"`

	// Version grows with every successful mutation.
	Version uint64 `json:"-"`
}

// GameSummary is the lobby view of a game.
type GameSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"player_count"`
	IsFull      bool   `json:"is_full"`
}

func NewGame(id, name string) *Game {
	return &Game{
		ID:          id,
		Name:        name,
		Board:       NewBoard(),
		CurrentTurn: PlayerX,
		Players:     []*Player{},
	}
}

func NewBoard() Board {
	var board Board
	for row := range board {
		for col := range board[row] {
			board[row][col] = Empty
		}
	}

	return board
}

// AddPlayer seats a new player. The symbol depends on the seat: first X, then O.
func (that *Game) AddPlayer(id, name string) (*Player, error) {
	if len(that.Players) >= MaxPlayers {
		return nil, apperror.ErrGameFull
	}

	symbol := PlayerX
	if len(that.Players) == 1 {
		symbol = PlayerO
	}

	player := &Player{
		ID:     id,
		Name:   name,
		Symbol: symbol,
	}

	that.Players = append(that.Players, player)
	that.IsFull = len(that.Players) == MaxPlayers
	that.Version++

	return player, nil
}

// ApplyMove places the acting player's symbol at (row, col) and settles the game
// when the move completes a line or fills the board.
func (that *Game) ApplyMove(row, col int, playerID string) error {
	if that.GameOver {
		return apperror.ErrGameOver
	}

	if row < 0 || row >= BoardSize || col < 0 || col >= BoardSize {
		return fmt.Errorf("%w: row %d, col %d", apperror.ErrOutOfRange, row, col)
	}

	if that.Board[row][col] != Empty {
		return apperror.ErrCellOccupied
	}

	player := that.FindPlayer(playerID)
	if player == nil {
		return apperror.ErrPlayerNotFound
	}

	if player.Symbol != that.CurrentTurn {
		return apperror.ErrNotYourTurn
	}

	that.Board[row][col] = player.Symbol
	that.Version++

	switch winner := that.Board.Winner(); {
	case winner != Empty:
		that.Winner = &winner
		that.GameOver = true
	case that.Board.IsFull():
		that.GameOver = true
	default:
		that.CurrentTurn = toggleSymbol(that.CurrentTurn)
	}

	return nil
}

func (that *Game) FindPlayer(id string) *Player {
	for _, player := range that.Players {
		if player.ID == id {
			return player
		}
	}

	return nil
}

// Clone returns a deep copy safe to hand out of a lock.
func (that *Game) Clone() *Game {
	clone := *that

	clone.Players = make([]*Player, 0, len(that.Players))
	for _, player := range that.Players {
		p := *player
		clone.Players = append(clone.Players, &p)
	}

	if that.Winner != nil {
		winner := *that.Winner
		clone.Winner = &winner
	}

	return &clone
}

func (that *Game) Summary() GameSummary {
	return GameSummary{
		ID:          that.ID,
		Name:        that.Name,
		PlayerCount: len(that.Players),
		IsFull:      that.IsFull,
	}
}

// Winner returns the symbol owning a complete line, or Empty.
func (that Board) Winner() Symbol {
	for _, line := range WinLines {
		a := that[line[0][0]][line[0][1]]
		b := that[line[1][0]][line[1][1]]
		c := that[line[2][0]][line[2][1]]

		if a != Empty && a == b && b == c {
			return a
		}
	}

	return Empty
}

func (that Board) IsFull() bool {
	for _, row := range that {
		for _, cell := range row {
			if cell == Empty {
				return false
			}
		}
	}

	return true
}

func toggleSymbol(current Symbol) Symbol {
	if current == PlayerX {
		return PlayerO
	}
	return PlayerX
}
