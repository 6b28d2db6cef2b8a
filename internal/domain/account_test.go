package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/mkrupp/homecase-accounts/internal/domain"
)

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"first.last+tag@sub.example.org", true},
		{"a@b.co", true},
		{"bad-email", false},
		{"user@example", false},
		{"user@example.c", false},
		{"@example.com", false},
		{"user@.com", false},
		{"us er@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, ValidateEmail(tt.email))
		})
	}
}

func TestNewAccount(t *testing.T) {
	t.Parallel()

	account, err := NewAccount("alice", "Passw0rd", "a@b.com", RoleUser)
	require.NoError(t, err)

	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, "a@b.com", account.Email)
	assert.Equal(t, RoleUser, account.Role)
	assert.False(t, account.IsAdmin())
	assert.False(t, account.CreatedAt.IsZero())
	assert.NotContains(t, string(account.Credential), "Passw0rd")
	assert.True(t, account.Credential.Verify("Passw0rd"))
}

func TestAccount_RecordRoundTrip(t *testing.T) {
	t.Parallel()

	account, err := NewAccount("root", "Adm1nPass", "root@example.com", RoleAdmin)
	require.NoError(t, err)

	data, err := json.Marshal([]AccountRecord{account.Record()})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"password_hash"`)
	assert.Contains(t, string(data), `"role":"admin"`)
	assert.NotContains(t, string(data), `"password":`)

	var records []AccountRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 1)
	assert.False(t, records[0].IsLegacy())

	restored, err := AccountFromRecord(records[0], time.Now())
	require.NoError(t, err)

	assert.Equal(t, account.Username, restored.Username)
	assert.Equal(t, account.Email, restored.Email)
	assert.Equal(t, account.Role, restored.Role)
	assert.True(t, account.CreatedAt.Equal(restored.CreatedAt))
	assert.True(t, restored.Credential.Verify("Adm1nPass"))
	assert.False(t, restored.Credential.Verify("wrong"))
}

func TestAccountFromRecord(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	plain := "Legacy123"
	badHash := "nocolon"

	tests := []struct {
		name      string
		record    AccountRecord
		wantErr   error
		wantRole  Role
		wantAt    time.Time
		checkPass string
	}{
		{
			name:      "legacy record is hashed",
			record:    AccountRecord{Username: "bob", Password: &plain, Email: "bob@example.com", Role: "admin"},
			wantRole:  RoleAdmin,
			wantAt:    now,
			checkPass: plain,
		},
		{
			name:     "timestamp without zone is local",
			record:   AccountRecord{Username: "bob", Password: &plain, Email: "bob@example.com", CreatedAt: "2024-05-06T07:08:09.123456"},
			wantRole: RoleUser,
			wantAt:   time.Date(2024, 5, 6, 7, 8, 9, 123456000, time.Local),
		},
		{
			name:     "zoned timestamp keeps its offset",
			record:   AccountRecord{Username: "bob", Password: &plain, Email: "bob@example.com", CreatedAt: "2024-05-06T07:08:09+02:00"},
			wantRole: RoleUser,
			wantAt:   time.Date(2024, 5, 6, 5, 8, 9, 0, time.UTC),
		},
		{
			name:    "missing username",
			record:  AccountRecord{Password: &plain},
			wantErr: ErrMissingFields,
		},
		{
			name:    "missing password",
			record:  AccountRecord{Username: "bob"},
			wantErr: ErrMissingFields,
		},
		{
			name:    "malformed hash",
			record:  AccountRecord{Username: "bob", PasswordHash: &badHash},
			wantErr: ErrInvalidCredential,
		},
		{
			name:    "unknown role",
			record:  AccountRecord{Username: "bob", Password: &plain, Role: "root"},
			wantErr: ErrInvalidRole,
		},
		{
			name:    "garbage timestamp",
			record:  AccountRecord{Username: "bob", Password: &plain, CreatedAt: "yesterday"},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			account, err := AccountFromRecord(tt.record, now)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, account.Role)
			assert.True(t, tt.wantAt.Equal(account.CreatedAt), "created_at = %v", account.CreatedAt)

			if tt.checkPass != "" {
				assert.True(t, account.Credential.Verify(tt.checkPass))
			}
		})
	}
}

func TestAccount_ViewHidesCredential(t *testing.T) {
	t.Parallel()

	account, err := NewAccount("alice", "Passw0rd", "a@b.com", RoleUser)
	require.NoError(t, err)

	data, err := json.Marshal(account.View())
	require.NoError(t, err)

	assert.NotContains(t, string(data), "password")
	assert.NotContains(t, string(data), string(account.Credential))
	assert.Contains(t, string(data), `"role":"user"`)
}

func TestRole(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"admin", "user"} {
		role, err := ParseRole(name)
		require.NoError(t, err)
		assert.Equal(t, name, role.String())

		text, err := role.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(text))
	}

	_, err := ParseRole("ADMIN")
	assert.ErrorIs(t, err, ErrInvalidRole)

	var role Role
	require.Error(t, role.UnmarshalText([]byte("superuser")))
	require.NoError(t, role.UnmarshalText([]byte("admin")))
	assert.Equal(t, RoleAdmin, role)

	_, err = Role(7).MarshalText()
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestSession_Expired(t *testing.T) {
	t.Parallel()

	expiresAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	session := Session{Token: "t", Username: "alice", ExpiresAt: expiresAt}

	assert.False(t, session.Expired(expiresAt.Add(-time.Second)))
	assert.False(t, session.Expired(expiresAt))
	assert.True(t, session.Expired(expiresAt.Add(time.Nanosecond)))
}
