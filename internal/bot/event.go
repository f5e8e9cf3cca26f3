// Package bot is the transport boundary. It classifies inbound events,
// gates them through the access controller, and routes them either to
// the entry session machine or to a direct operation. Everything the
// user sees is rendered here; the packages below it deal in data only.
package bot

// Event is one inbound update, already reduced to the three shapes the
// router cares about. Exactly one of Command, Token and Text is set.
type Event struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`

	Command string `json:"command,omitempty"` // slash command with arguments, e.g. "/start"
	Token   string `json:"token,omitempty"`   // menu selection callback token
	Text    string `json:"text,omitempty"`    // free-text reply
}

// Option is one pressable menu entry.
type Option struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Reply is what the transport sends back: a message plus option rows.
type Reply struct {
	Text    string     `json:"text"`
	Options [][]Option `json:"options,omitempty"`
}

func row(opts ...Option) []Option { return opts }
