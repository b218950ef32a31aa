package session

import (
	"strings"

	"hecstore.ai/internal/protocol"
)

const whisperMarker = "whispers:"

// ParseWhisper extracts a player command from a chat event. Whispers look like
// "<name> whispers: <msg>"; when the game reports a sender, that name wins.
func ParseWhisper(ev Event) (protocol.PlayerCommand, bool) {
	if ev.Kind != EventChat {
		return protocol.PlayerCommand{}, false
	}
	i := strings.Index(ev.Text, whisperMarker)
	if i < 0 {
		return protocol.PlayerCommand{}, false
	}
	player := strings.TrimSpace(ev.Sender)
	if player == "" {
		prefix := strings.Fields(ev.Text[:i])
		if len(prefix) != 1 {
			return protocol.PlayerCommand{}, false
		}
		player = prefix[0]
	}
	text := strings.TrimSpace(ev.Text[i+len(whisperMarker):])
	return protocol.PlayerCommand{Player: player, Text: text}, true
}

// WhisperCommand is the chat line that privately messages player.
func WhisperCommand(player, text string) string {
	return "/msg " + player + " " + text
}
