package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
)

func TestJWTRoundTrip(t *testing.T) {
	mgr := NewJWTManager("test-secret", "terrarium")

	token, err := mgr.Generate(42, RoleAdmin)
	require.NoError(t, err)

	claims, err := mgr.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "terrarium", claims.Issuer)
	assert.Equal(t, "42", claims.Subject)
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", "terrarium").Generate(1, RoleUser)
	require.NoError(t, err)

	_, err = NewJWTManager("secret-b", "terrarium").Verify(token)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrAuthInvalidToken, apperrors.ExtractCode(err))
}

func TestJWTGarbage(t *testing.T) {
	mgr := NewJWTManager("test-secret", "terrarium")

	_, err := mgr.Verify("not.a.token")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrAuthInvalidToken, apperrors.ExtractCode(err))
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"missing prefix", "abc.def.ghi", "", true},
		{"wrong scheme", "Basic abc", "", true},
		{"empty", "", "", true},
		{"prefix only", "Bearer ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBearer(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
