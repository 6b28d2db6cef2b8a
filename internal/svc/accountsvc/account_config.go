package accountsvc

import "time"

// AccountConfig contains configuration parameters for the account service.
type AccountConfig struct {
	// SessionTTL is how long a session stays valid after login
	SessionTTL time.Duration `env:"SESSION_TTL" default:"30m"`

	// DefaultAdmin is seeded when no accounts file exists
	DefaultAdmin DefaultAdminConfig `envPrefix:"DEFAULT_ADMIN_"`
}

// DefaultAdminConfig describes the account created on first start.
// Operators must change its password after the first login.
type DefaultAdminConfig struct {
	Username string `env:"USERNAME" default:"admin"`
	Password string `env:"PASSWORD" default:"Admin123!"`
	Email    string `env:"EMAIL" default:"admin@example.com"`
}
