package game

import "fmt"

// A Mode determines how a session treats mines, timeouts, and scoring. It is
// fixed for the lifetime of a session.
type Mode int

const (
	// Picking a mine loses the game immediately.
	ModeSurvival Mode = iota
	// Picking a mine costs a point; the highest score when the board runs
	// out wins.
	ModeScoring
)

func (m Mode) String() string {
	switch m {
	case ModeSurvival:
		return "survival"
	case ModeScoring:
		return "scoring"
	}
	return "unknown"
}

func ParseMode(name string) (Mode, error) {
	switch name {
	case "survival":
		return ModeSurvival, nil
	case "scoring":
		return ModeScoring, nil
	}
	return 0, fmt.Errorf("unknown game mode '%s'", name)
}

// Why a session ended.
type Reason int

const (
	ReasonMineHit Reason = iota
	ReasonTimeout
	ReasonBoardExhausted
	ReasonDisconnect
)

func (r Reason) String() string {
	switch r {
	case ReasonMineHit:
		return "mine_hit"
	case ReasonTimeout:
		return "timeout"
	case ReasonBoardExhausted:
		return "board_exhausted"
	case ReasonDisconnect:
		return "disconnect"
	}
	return "unknown"
}

// The terminal result of a session.
type Outcome struct {
	// Meaningful only when Draw is false.
	Winner int
	Draw   bool
	Reason Reason
}

func Win(player int, reason Reason) Outcome {
	return Outcome{Winner: player, Reason: reason}
}

func Draw(reason Reason) Outcome {
	return Outcome{Draw: true, Reason: reason}
}
