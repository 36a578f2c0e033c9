package protocol

import (
	"encoding/json"
	"fmt"
)

// The longest line either side will accept, delimiter included.
const MaxMessageSize = 4096

var messages = map[MessageType]func() Message{
	JoinType:        func() Message { return &Join{} },
	PickType:        func() Message { return &Pick{} },
	LeaveType:       func() Message { return &Leave{} },
	QueuedType:      func() Message { return &Queued{} },
	MatchedType:     func() Message { return &Matched{} },
	TurnStartType:   func() Message { return &TurnStart{} },
	RevealType:      func() Message { return &Reveal{} },
	ScoreUpdateType: func() Message { return &ScoreUpdate{} },
	GameOverType:    func() Message { return &GameOver{} },
	ErrorType:       func() Message { return &Error{} },
}

// Decode parses a single line (without its delimiter) into a typed message.
func Decode(data []byte) (Message, error) {
	var envelope struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	build, ok := messages[envelope.Type]
	if !ok {
		return nil, fmt.Errorf("unknown message type '%s'", envelope.Type)
	}

	message := build()
	if err := json.Unmarshal(data, message); err != nil {
		return nil, fmt.Errorf("malformed %s message: %w", envelope.Type, err)
	}

	return message, nil
}

// Encode serializes a message as one newline-terminated JSON object.
func Encode(message Message) ([]byte, error) {
	fields, err := json.Marshal(message)
	if err != nil {
		return nil, err
	}

	var object map[string]interface{}
	if err := json.Unmarshal(fields, &object); err != nil {
		return nil, err
	}
	object["type"] = message.Type()

	data, err := json.Marshal(object)
	if err != nil {
		return nil, err
	}

	return append(data, '\n'), nil
}
