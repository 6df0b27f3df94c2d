package domain

import "github.com/google/uuid"

type UserID = uuid.UUID
type RefreshTokenID = uuid.UUID
type BackupCodeID = uuid.UUID
