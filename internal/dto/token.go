package dto

import "time"

type TokenResponse struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	TokenType        string    `json:"tokenType"`
	ExpiresIn        int64     `json:"expiresIn"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type TokenCleanupCounts struct {
	DeletedRevoked int64 `json:"deletedRevoked"`
	DeletedExpired int64 `json:"deletedExpired"`
	Total          int64 `json:"total"`
}

type CleanupReport struct {
	RefreshTokens      TokenCleanupCounts `json:"refreshTokens"`
	AccessTokens       int64              `json:"deletedAccessTokens"`
	VerificationTokens int64              `json:"deletedVerificationTokens"`
	Total              int64              `json:"total"`
}
