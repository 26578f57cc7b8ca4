package highlight

import "time"

// Reel groups media from one or more games into a shareable highlight set.
type Reel struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	GameIDs       []string  `json:"game_ids"`
	MediaIDs      []string  `json:"media_ids"`
	Season        string    `json:"season,omitempty"`
	AIDescription string    `json:"ai_description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
