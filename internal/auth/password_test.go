package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
)

func TestCheckStrength(t *testing.T) {
	checker := NewPasswordChecker(4)

	tests := []struct {
		name     string
		password string
		wantErr  bool
		failing  []string
	}{
		{
			name:     "valid password",
			password: "Terrarium1",
			wantErr:  false,
		},
		{
			name:     "too short",
			password: "Abc1",
			wantErr:  true,
			failing:  []string{"length"},
		},
		{
			name:     "no uppercase",
			password: "terrarium1",
			wantErr:  true,
			failing:  []string{"uppercase"},
		},
		{
			name:     "no numbers",
			password: "Terrarium",
			wantErr:  true,
			failing:  []string{"numbers"},
		},
		{
			name:     "everything wrong",
			password: "plant",
			wantErr:  true,
			failing:  []string{"length", "uppercase", "numbers"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checker.CheckStrength(tt.password)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Equal(t, apperrors.ErrAuthWeakPassword, apperrors.ExtractCode(err))

			data := apperrors.ExtractData(err)
			require.NotNil(t, data)
			assert.Equal(t, "password", data.Field)
			for _, req := range tt.failing {
				assert.False(t, data.Requirements[req], req)
			}
		})
	}
}

func TestHashAndVerify(t *testing.T) {
	checker := NewPasswordChecker(4)

	hash, err := checker.Hash("Terrarium1")
	require.NoError(t, err)
	assert.NotEqual(t, "Terrarium1", hash)

	assert.True(t, checker.Verify(hash, "Terrarium1"))
	assert.False(t, checker.Verify(hash, "Terrarium2"))
	assert.False(t, checker.Verify("not a hash", "Terrarium1"))
}
