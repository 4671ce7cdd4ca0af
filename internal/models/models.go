package models

const (
	RoleAdmin  = "admin"
	RoleMua    = "mua"
	RoleClient = "client"
)

// User is the identity record. RefreshTokens holds every currently-valid
// refresh token for the account, in issuance order; the list is the source
// of truth for revocation. It lives on the user row as a JSON-serialized
// array, there is no separate token table.
type User struct {
	ID            uint     `gorm:"primaryKey;autoIncrement"  json:"id"`
	Username      string   `gorm:"unique;not null"           json:"username"`
	PasswordHash  string   `gorm:"not null"                  json:"-"`
	Role          string   `gorm:"not null"                  json:"role"`
	RefreshTokens []string `gorm:"serializer:json;type:text" json:"-"`
}
