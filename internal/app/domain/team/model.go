package team

import "time"

// Team groups players under a user account.
type Team struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Logo           string    `json:"logo,omitempty"`
	ColorPrimary   string    `json:"color_primary"`
	ColorSecondary string    `json:"color_secondary"`
	CreatedAt      time.Time `json:"created_at"`
}
