package db

import "time"

type UserModel struct {
	Username     string `gorm:"primaryKey"`
	PasswordHash string `gorm:"not null"`
	Email        string
	Disabled     bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (UserModel) TableName() string {
	return "users"
}

type ClientModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	SecretHash  string `gorm:"not null"`
	Name        string `gorm:"not null"`
	Description string
	Owner       string    `gorm:"index;not null"`
	Disabled    bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (ClientModel) TableName() string {
	return "clients"
}

type AuthenticationTokenModel struct {
	AccessToken  string    `gorm:"type:uuid;primaryKey"`
	RefreshToken string    `gorm:"type:uuid;uniqueIndex;not null"`
	Username     string    `gorm:"index;not null"`
	Granted      time.Time `gorm:"not null"`
	Expires      time.Time `gorm:"index;not null"`
	Invalidated  bool      `gorm:"not null;default:false"`
}

func (AuthenticationTokenModel) TableName() string {
	return "authentication_tokens"
}

type AuthorizationTokenModel struct {
	AccessToken  string `gorm:"type:uuid;primaryKey"`
	RefreshToken string `gorm:"type:uuid;uniqueIndex;not null"`
	ClientID     string `gorm:"type:uuid;index;not null"`
	Username     string `gorm:"index;not null"`
	Scopes       string
	Granted      time.Time `gorm:"not null"`
	Expires      time.Time `gorm:"index;not null"`
	Revoked      bool      `gorm:"not null;default:false"`
}

func (AuthorizationTokenModel) TableName() string {
	return "authorization_tokens"
}

type AuthorizationCodeModel struct {
	Code      string `gorm:"type:uuid;primaryKey"`
	ClientID  string `gorm:"type:uuid;index;not null"`
	Username  string `gorm:"index;not null"`
	Scopes    string
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
	UsedAt    *time.Time
}

func (AuthorizationCodeModel) TableName() string {
	return "authorization_codes"
}

type AuditEventModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	Username   string `gorm:"index"`
	ClientID   string
	EventType  string `gorm:"index;not null"`
	Result     string `gorm:"not null"`
	Detail     string
	RemoteAddr string
	CreatedAt  time.Time `gorm:"index;not null"`
}

func (AuditEventModel) TableName() string {
	return "audit_events"
}
