package domain

import "fmt"

// Role is the authorization level of an account.
type Role uint8

const (
	// RoleUser is a regular account. It is the zero value.
	RoleUser Role = iota
	// RoleAdmin may list, update, delete and re-role other accounts.
	RoleAdmin
)

const (
	roleUserName  = "user"
	roleAdminName = "admin"
)

// ParseRole maps the canonical lowercase name to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case roleUserName:
		return RoleUser, nil
	case roleAdminName:
		return RoleAdmin, nil
	default:
		return RoleUser, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return roleAdminName
	case RoleUser:
		return roleUserName
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	switch r {
	case RoleAdmin, RoleUser:
		return []byte(r.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, uint8(r))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}

	*r = role

	return nil
}
