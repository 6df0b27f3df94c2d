package dto

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// One of these is required once two-factor is enabled.
	OTP        string `json:"otp,omitempty"`
	BackupCode string `json:"backupCode,omitempty"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}
