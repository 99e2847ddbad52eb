package job

import (
	"encoding/json"
	"time"
)

// Job is a change-feed record that exhausted processing, parked for manual
// inspection and replay.
type Job struct {
	ID        string          `json:"id"`
	PostID    string          `json:"post_id"`
	EventName string          `json:"event_name"`
	Payload   json.RawMessage `json:"payload"`
	Error     string          `json:"error"`
	Retries   int             `json:"retries"`
	CreatedAt time.Time       `json:"created_at"`
}
