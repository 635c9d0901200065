// Package protocol defines the messages exchanged with clients over the socket.
//
// Messages use an externally tagged JSON layout: a variant with fields is encoded as
// {"Tag":{...}}, a variant wrapping a single value as {"Tag":value} and a variant
// without data as the bare string "Tag".
package protocol

import "github.com/rocketscienceinc/tictactoe-lobby/internal/entity"

// ClientMessage is one of CreateGame, JoinGame, MakeMove or GetAvailableGames.
type ClientMessage interface {
	clientMessage()
}

type CreateGame struct {
	GameName   string `json:"game_name"`
	PlayerName string `json:"player_name"`
}

type JoinGame struct {
	GameName   string `json:"game_name"`
	PlayerName string `json:"player_name"`
}

type MakeMove struct {
	Row uint `json:"row"`
	Col uint `json:"col"`
}

type GetAvailableGames struct{}

func (CreateGame) clientMessage()        {}
func (JoinGame) clientMessage()          {}
func (MakeMove) clientMessage()          {}
func (GetAvailableGames) clientMessage() {}

// ServerMessage is one of the outbound variants below.
type ServerMessage interface {
	serverMessage()
}

type GameCreated struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}

type GameJoined struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}

// GameState carries a full snapshot of one game.
type GameState struct {
	Game *entity.Game
}

type AvailableGames struct {
	Games []entity.GameSummary
}

type Error struct {
	Message string
}

// PlayerConnected and PlayerDisconnected are part of the vocabulary so clients can
// decode them, the server does not send them yet.
type PlayerConnected struct {
	PlayerName string `json:"player_name"`
}

type PlayerDisconnected struct {
	PlayerName string `json:"player_name"`
}

func (GameCreated) serverMessage()        {}
func (GameJoined) serverMessage()         {}
func (GameState) serverMessage()          {}
func (AvailableGames) serverMessage()     {}
func (Error) serverMessage()              {}
func (PlayerConnected) serverMessage()    {}
func (PlayerDisconnected) serverMessage() {}
