package apperror

import "errors"

// Messages are sent to clients verbatim.
//
//nolint: stylecheck // capitalized on purpose
var (
	ErrNameTaken      = errors.New("Game name already exists")
	ErrGameNotFound   = errors.New("Game not found")
	ErrGameFull       = errors.New("Game is full")
	ErrGameOver       = errors.New("Game is over")
	ErrCellOccupied   = errors.New("Cell is already occupied")
	ErrPlayerNotFound = errors.New("Player not found")
	ErrNotYourTurn    = errors.New("Not your turn")
	ErrOutOfRange     = errors.New("Cell is out of range")
	ErrInvalidName    = errors.New("Name must not be empty")
	ErrNotInGame      = errors.New("Not in a game")
	ErrAlreadyInGame  = errors.New("Already in a game")
	ErrBadRequest     = errors.New("Bad request")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrNameTaken, "name_taken"},
	{ErrGameNotFound, "game_not_found"},
	{ErrGameFull, "game_full"},
	{ErrGameOver, "game_over"},
	{ErrCellOccupied, "cell_occupied"},
	{ErrPlayerNotFound, "player_not_found"},
	{ErrNotYourTurn, "not_your_turn"},
	{ErrOutOfRange, "out_of_range"},
	{ErrInvalidName, "invalid_name"},
	{ErrNotInGame, "not_in_game"},
	{ErrAlreadyInGame, "already_in_game"},
	{ErrBadRequest, "bad_request"},
}

// Code returns a stable identifier for a known error, "internal" otherwise.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}

	return "internal"
}

// Message returns the client-facing text for err. Wrapping context is stripped
// from known errors so clients always see the same sentence.
func Message(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.err.Error()
		}
	}

	return "Internal error"
}
