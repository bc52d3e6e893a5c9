package models

import "time"

// Turn roles. Stored as plain strings so the session log stays readable.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a session's history. Turns are append-only: the
// pipeline writes the user turn before the matching assistant turn and never
// mutates or deletes either.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRequest is the body of a chat message from the client.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the answer to one chat exchange. Context holds the chunk
// texts used for grounding, best match first. History is the full updated
// session history, oldest first. ResponseTime is the wall-clock seconds spent
// in retrieval (query embedding plus index search).
type ChatResponse struct {
	Answer       string   `json:"answer"`
	ResponseTime float64  `json:"response_time"`
	Context      []string `json:"context"`
	History      []Turn   `json:"chat_history"`
}

// Retrieval is the ephemeral per-query result of similarity search: up to k
// chunk texts by descending similarity plus their concatenation.
type Retrieval struct {
	Chunks  []string `json:"chunks"`
	Context string   `json:"context"`
	Elapsed float64  `json:"elapsed"` // seconds
}
