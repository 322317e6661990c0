package entities

// User is a dashboard operator account. Each operator owns one tenant
// and its per-tenant config schema.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	TenantID     string `json:"tenant_id"`
	SchemaName   string `json:"schema_name"`
	IsActive     bool   `json:"is_active"`
}
