package models

//nolint:gosec //file not handles sensitive data
const (
	MwSchemeBearerAuth = "BearerAuth"

	MwClaimsKey = "claims"
)

// ClientMetadata describes the client a session was issued to.
type ClientMetadata struct {
	UserAgent string `json:"user_agent"`
	IPAddress string `json:"ip_address"`
}

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}
