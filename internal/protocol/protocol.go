package protocol

import "encoding/json"

// Version of the game gateway wire protocol.
const Version = "1.0"

// Gateway frame types.
const (
	TypeHello      = "HELLO"
	TypeChat       = "CHAT"
	TypePosition   = "POSITION"
	TypeAction     = "ACTION"
	TypeResult     = "RESULT"
	TypeDisconnect = "DISCONNECT"
)

// BaseMessage lets us route unknown JSON frames by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
