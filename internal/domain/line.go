package domain

import "time"

// LineProfile is the authenticated LINE user behind a request.
type LineProfile struct {
	UserID        string `json:"user_id"`
	DisplayName   string `json:"display_name"`
	PictureURL    string `json:"picture_url,omitempty"`
	StatusMessage string `json:"status_message,omitempty"`
	Email         string `json:"email,omitempty"`
}

// FriendshipStatus reports whether a user has added the official account.
type FriendshipStatus struct {
	FriendFlag bool      `json:"friend_flag"`
	CheckedAt  time.Time `json:"checked_at"`
	Cached     bool      `json:"cached"`
}
