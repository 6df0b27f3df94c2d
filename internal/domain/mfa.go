package domain

import "time"

type BackupCode struct {
	ID        BackupCodeID `gorm:"type:uuid;primaryKey" db:"id"`
	UserID    UserID       `gorm:"type:uuid;not null;index" db:"user_id"`
	CodeHash  string       `gorm:"type:text;not null" db:"code_hash"`
	UsedAt    *time.Time   `db:"used_at"`
	CreatedAt time.Time    `gorm:"not null" db:"created_at"`
}

func (BackupCode) TableName() string { return "backup_codes" }

// TwoFactorEnrollment is returned once by enable; nothing in it is retrievable later.
type TwoFactorEnrollment struct {
	Secret      string   `json:"secret"`
	OTPAuthURL  string   `json:"otpauthUrl"`
	BackupCodes []string `json:"backupCodes"`
}
