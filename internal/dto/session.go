package dto

type RevokedResponse struct {
	Revoked int64 `json:"revoked"`
}
