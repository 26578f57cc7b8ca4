package player

import "time"

// Player is a roster player owned by a user. TeamID is empty when the player
// is unassigned.
type Player struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TeamID    string    `json:"team_id,omitempty"`
	Name      string    `json:"name"`
	Number    int       `json:"number,omitempty"`
	Position  string    `json:"position,omitempty"`
	Photo     string    `json:"photo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
