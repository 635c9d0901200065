package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-lobby/internal/entity"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownVariant   = errors.New("unknown message variant")
	ErrMissingField     = errors.New("missing field")
)

const (
	tagCreateGame         = "CreateGame"
	tagJoinGame           = "JoinGame"
	tagMakeMove           = "MakeMove"
	tagGetAvailableGames  = "GetAvailableGames"
	tagGameCreated        = "GameCreated"
	tagGameJoined         = "GameJoined"
	tagGameState          = "GameState"
	tagAvailableGames     = "AvailableGames"
	tagError              = "Error"
	tagPlayerConnected    = "PlayerConnected"
	tagPlayerDisconnected = "PlayerDisconnected"
)

type namesPayload struct {
	GameName   *string `json:"game_name"`
	PlayerName *string `json:"player_name"`
}

type movePayload struct {
	Row *uint `json:"row"`
	Col *uint `json:"col"`
}

// DecodeClientMessage parses one inbound text frame.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	tag, body, err := splitVariant(data)
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagGetAvailableGames:
		return GetAvailableGames{}, nil
	case tagCreateGame, tagJoinGame:
		var payload namesPayload
		if err = unmarshalBody(tag, body, &payload); err != nil {
			return nil, err
		}

		if payload.GameName == nil || payload.PlayerName == nil {
			return nil, fmt.Errorf("%w: %s requires game_name and player_name", ErrMissingField, tag)
		}

		if tag == tagCreateGame {
			return CreateGame{GameName: *payload.GameName, PlayerName: *payload.PlayerName}, nil
		}
		return JoinGame{GameName: *payload.GameName, PlayerName: *payload.PlayerName}, nil
	case tagMakeMove:
		var payload movePayload
		if err = unmarshalBody(tag, body, &payload); err != nil {
			return nil, err
		}

		if payload.Row == nil || payload.Col == nil {
			return nil, fmt.Errorf("%w: %s requires row and col", ErrMissingField, tag)
		}

		return MakeMove{Row: *payload.Row, Col: *payload.Col}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, tag)
	}
}

// EncodeServerMessage renders an outbound message as a JSON text frame.
func EncodeServerMessage(msg ServerMessage) ([]byte, error) {
	var tag string
	var body any

	switch m := msg.(type) {
	case GameCreated:
		tag, body = tagGameCreated, m
	case GameJoined:
		tag, body = tagGameJoined, m
	case GameState:
		if m.Game == nil {
			return nil, fmt.Errorf("%w: empty game state", ErrMalformedMessage)
		}
		tag, body = tagGameState, m.Game
	case AvailableGames:
		games := m.Games
		if games == nil {
			games = []entity.GameSummary{}
		}
		tag, body = tagAvailableGames, games
	case Error:
		tag, body = tagError, m.Message
	case PlayerConnected:
		tag, body = tagPlayerConnected, m
	case PlayerDisconnected:
		tag, body = tagPlayerDisconnected, m
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownVariant, msg)
	}

	data, err := json.Marshal(map[string]any{tag: body})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", tag, err)
	}

	return data, nil
}

// EncodeClientMessage is the client side counterpart of DecodeClientMessage.
func EncodeClientMessage(msg ClientMessage) ([]byte, error) {
	var data []byte
	var err error

	switch m := msg.(type) {
	case GetAvailableGames:
		data, err = json.Marshal(tagGetAvailableGames)
	case CreateGame:
		data, err = json.Marshal(map[string]any{tagCreateGame: m})
	case JoinGame:
		data, err = json.Marshal(map[string]any{tagJoinGame: m})
	case MakeMove:
		data, err = json.Marshal(map[string]any{tagMakeMove: m})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownVariant, msg)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to marshal client message: %w", err)
	}

	return data, nil
}

// DecodeServerMessage is the client side counterpart of EncodeServerMessage.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	tag, body, err := splitVariant(data)
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagGameCreated:
		return decodeAs[GameCreated](tag, body)
	case tagGameJoined:
		return decodeAs[GameJoined](tag, body)
	case tagGameState:
		game := &entity.Game{}
		if err = unmarshalBody(tag, body, game); err != nil {
			return nil, err
		}
		return GameState{Game: game}, nil
	case tagAvailableGames:
		var games []entity.GameSummary
		if err = unmarshalBody(tag, body, &games); err != nil {
			return nil, err
		}
		return AvailableGames{Games: games}, nil
	case tagError:
		var text string
		if err = unmarshalBody(tag, body, &text); err != nil {
			return nil, err
		}
		return Error{Message: text}, nil
	case tagPlayerConnected:
		return decodeAs[PlayerConnected](tag, body)
	case tagPlayerDisconnected:
		return decodeAs[PlayerDisconnected](tag, body)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, tag)
	}
}

func decodeAs[T ServerMessage](tag string, body json.RawMessage) (ServerMessage, error) {
	var msg T
	if err := unmarshalBody(tag, body, &msg); err != nil {
		return nil, err
	}

	return msg, nil
}

// splitVariant returns the variant tag and its raw body; body is nil for unit variants.
func splitVariant(data []byte) (string, json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty payload", ErrMalformedMessage)
	}

	if data[0] == '"' {
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return "", nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
		}
		return tag, nil, nil
	}

	var variant map[string]json.RawMessage
	if err := json.Unmarshal(data, &variant); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	if len(variant) != 1 {
		return "", nil, fmt.Errorf("%w: expected exactly one variant, got %d", ErrMalformedMessage, len(variant))
	}

	for tag, body := range variant {
		return tag, body, nil
	}

	return "", nil, ErrMalformedMessage
}

func unmarshalBody(tag string, body json.RawMessage, v any) error {
	if body == nil {
		return fmt.Errorf("%w: %s has no payload", ErrMalformedMessage, tag)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedMessage, tag, err)
	}

	return nil
}
