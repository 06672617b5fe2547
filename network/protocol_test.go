package network

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames_QualifyAndBare(t *testing.T) {
	n := Names{Prefix: "at.theduke.wt"}

	assert.Equal(t, "at.theduke.wt.join_game", n.Qualify(ProcJoinGame))

	bare, ok := n.Bare("at.theduke.wt.player_moved")
	assert.True(t, ok)
	assert.Equal(t, ProcPlayerMoved, bare)

	_, ok = n.Bare("com.example.player_moved")
	assert.False(t, ok)
	_, ok = n.Bare("at.theduke.wt.")
	assert.False(t, ok)
}

func TestNames_EmptyPrefix(t *testing.T) {
	n := Names{}
	assert.Equal(t, "heartbeat", n.Qualify(ProcHeartbeat))
	bare, ok := n.Bare("heartbeat")
	assert.True(t, ok)
	assert.Equal(t, "heartbeat", bare)
}

func TestMessage_DecodeCall(t *testing.T) {
	raw := `{"type":"call","id":3,"procedure":"p","args":[{"playerId":1,"x":5,"y":7}]}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	assert.Equal(t, MsgTypeCall, msg.Type)
	assert.Equal(t, uint64(3), msg.ID)
	require.Len(t, msg.Args, 1)
	assert.JSONEq(t, `{"playerId":1,"x":5,"y":7}`, string(msg.Args[0]))
}
