package dto

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	UserID                    string         `json:"userId"`
	RequiresEmailVerification bool           `json:"requiresEmailVerification"`
	Tokens                    *TokenResponse `json:"tokens,omitempty"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}
