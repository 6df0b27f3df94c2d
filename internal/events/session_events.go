package events

import "time"

type SessionRevoked struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Reason    string    `json:"reason"`
	Count     int64     `json:"count"`
	At        time.Time `json:"at"`
}

func (SessionRevoked) EventName() string { return "session.revoked" }

// RefreshTokenReused signals a likely stolen refresh token.
type RefreshTokenReused struct {
	TokenID string    `json:"tokenId"`
	UserID  string    `json:"userId"`
	IP      string    `json:"ip"`
	Revoked int64     `json:"revoked"`
	At      time.Time `json:"at"`
}

func (RefreshTokenReused) EventName() string { return "refresh_token.reused" }
