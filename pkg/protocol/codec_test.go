package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	message, err := Decode([]byte(`{"type":"join","mode":"survival"}`))
	require.NoError(t, err)
	join, ok := message.(*Join)
	require.True(t, ok)
	assert.Equal(t, "survival", join.Mode)

	message, err = Decode([]byte(`{"type":"pick","row":3,"col":7}`))
	require.NoError(t, err)
	pick, ok := message.(*Pick)
	require.True(t, ok)
	assert.Equal(t, 3, pick.Row)
	assert.Equal(t, 7, pick.Col)

	_, err = Decode([]byte(`{"type":"launch_missiles"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`this is not json`))
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	winner := 0
	data, err := Encode(GameOver{
		Reason:  "mine_hit",
		Outcome: "win",
		Winner:  &winner,
	})
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), data[len(data)-1])

	message, err := Decode(data[:len(data)-1])
	require.NoError(t, err)
	over, ok := message.(*GameOver)
	require.True(t, ok)
	assert.Equal(t, "mine_hit", over.Reason)
	assert.Equal(t, "win", over.Outcome)
	require.NotNil(t, over.Winner)
	assert.Equal(t, 0, *over.Winner)

	// Draws leave the winner out entirely.
	data, err = Encode(GameOver{Reason: "board_exhausted", Outcome: "draw"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "winner")
}

func TestRoundTrip(t *testing.T) {
	data, err := Encode(Reveal{Row: 3, Col: 3, IsMine: true, ByPlayer: 1})
	require.NoError(t, err)

	message, err := Decode(data[:len(data)-1])
	require.NoError(t, err)
	reveal, ok := message.(*Reveal)
	require.True(t, ok)
	assert.Equal(t, Reveal{Row: 3, Col: 3, IsMine: true, ByPlayer: 1}, *reveal)
}
