package dto

type TwoFactorCodeRequest struct {
	Code string `json:"code"`
}

type TwoFactorDisableRequest struct {
	Password string `json:"password"`
	Code     string `json:"code"`
}

type TwoFactorVerifyResponse struct {
	Valid bool `json:"valid"`
}
