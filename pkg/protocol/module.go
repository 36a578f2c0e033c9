// The wire protocol between the mines server and its clients: one JSON
// object per line over a persistent connection.
package protocol

type MessageType string

const (
	// client -> server
	JoinType  MessageType = "join"
	PickType  MessageType = "pick"
	LeaveType MessageType = "leave"
	// server -> client
	QueuedType      MessageType = "queued"
	MatchedType     MessageType = "matched"
	TurnStartType   MessageType = "turn_start"
	RevealType      MessageType = "reveal"
	ScoreUpdateType MessageType = "score_update"
	GameOverType    MessageType = "game_over"
	ErrorType       MessageType = "error"
)

type Message interface {
	Type() MessageType
}

// Enter the waiting queue for a game mode.
type Join struct {
	Mode string `json:"mode"`
}

func (Join) Type() MessageType { return JoinType }

// Reveal a cell on this player's turn.
type Pick struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (Pick) Type() MessageType { return PickType }

// Give up; treated exactly like dropping the connection.
type Leave struct{}

func (Leave) Type() MessageType { return LeaveType }

// The client is waiting for an opponent.
type Queued struct {
	Mode string `json:"mode"`
}

func (Queued) Type() MessageType { return QueuedType }

// An opponent was found. Player 0 moves first.
type Matched struct {
	Mode   string `json:"mode"`
	Player int    `json:"player"`
}

func (Matched) Type() MessageType { return MatchedType }

type TurnStart struct {
	Player int `json:"player"`
}

func (TurnStart) Type() MessageType { return TurnStartType }

// A cell was revealed by one of the players.
type Reveal struct {
	Row      int  `json:"row"`
	Col      int  `json:"col"`
	IsMine   bool `json:"isMine"`
	ByPlayer int  `json:"byPlayer"`
}

func (Reveal) Type() MessageType { return RevealType }

// Sent in scoring mode after every resolved pick.
type ScoreUpdate struct {
	Scores [2]int `json:"scores"`
}

func (ScoreUpdate) Type() MessageType { return ScoreUpdateType }

// The session reached a terminal outcome. Winner is only present for wins.
type GameOver struct {
	Reason  string `json:"reason"`
	Outcome string `json:"outcome"`
	Winner  *int   `json:"winner,omitempty"`
}

func (GameOver) Type() MessageType { return GameOverType }

// A problem with this connection's last message. Never sent to the other
// player and never changes game state.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (Error) Type() MessageType { return ErrorType }

// Stable codes carried by Error messages.
const (
	CodeBadMessage       = "bad_message"
	CodeNotYourTurn      = "not_your_turn"
	CodeOutOfBounds      = "out_of_bounds"
	CodeAlreadyRevealed  = "already_revealed"
	CodeAlreadyQueued    = "already_queued"
	CodeAlreadyInSession = "already_in_session"
	CodeNotInSession     = "not_in_session"
)
