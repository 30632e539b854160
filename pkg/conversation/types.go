package conversation

import "time"

// TurnKind identifies who produced a turn.
type TurnKind string

const (
	// KindUser is a message typed or spoken by the user.
	KindUser TurnKind = "user"
	// KindAssistant is a reply from the backend (or a local fallback).
	KindAssistant TurnKind = "assistant"
	// KindSystem is an app-generated notice (greeting, capability alerts).
	KindSystem TurnKind = "system"
)

// Turn is one entry in the conversation log. Turns are immutable once
// created; the log is append-only for the session lifetime.
type Turn struct {
	Kind      TurnKind  `json:"kind"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Flags are the derived UI flags. They live beside the log, never in it.
type Flags struct {
	// Loading is true from the moment a chat submission begins until its
	// success or failure turn is appended.
	Loading bool `json:"loading"`

	// Listening mirrors active speech capture.
	Listening bool `json:"listening"`

	// Speaking mirrors an active speech output session.
	Speaking bool `json:"speaking"`
}
