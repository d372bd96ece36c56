package proto

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeJoin(t *testing.T) {
	req := require.New(t)

	var join JoinData
	req.NoError(Decode(json.RawMessage(`{"room":7}`), &join))
	req.Equal(int64(7), join.Room)

	req.Error(Decode(json.RawMessage(`{"room":0}`), &JoinData{}))
	req.Error(Decode(json.RawMessage(`{"room":"general"}`), &JoinData{}))
	req.Error(Decode(nil, &JoinData{}))
}

func TestDecodeSend(t *testing.T) {
	req := require.New(t)

	var msg SendData
	req.NoError(Decode(json.RawMessage(`{"message":"hi"}`), &msg))
	req.Equal("hi", msg.Message)

	var blank SendData
	req.NoError(Decode(json.RawMessage(`{"message":""}`), &blank))
	req.Empty(blank.Message)

	req.Error(Decode(json.RawMessage(`{"message":7}`), &SendData{}))
}

func TestDecodeLeaveDefaultsToCurrentRoom(t *testing.T) {
	var leave LeaveData
	require.NoError(t, Decode(nil, &leave))
	require.Zero(t, leave.Room)
}

func TestValidateText(t *testing.T) {
	req := require.New(t)
	req.NoError(ValidateText("héllo", 5))
	req.Error(ValidateText(strings.Repeat("x", 6), 5))
	req.NoError(ValidateText(strings.Repeat("x", 6000), 0))
}
