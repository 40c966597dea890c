package auth

import (
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
)

const (
	minPasswordLength = 8
)

// PasswordChecker hashes and verifies passwords with bcrypt and
// enforces the password policy.
type PasswordChecker struct {
	cost int
}

// NewPasswordChecker creates a checker with the given bcrypt cost
func NewPasswordChecker(cost int) *PasswordChecker {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordChecker{cost: cost}
}

// CheckStrength validates a candidate password against the policy. The
// returned error carries a per-requirement result map so clients can
// highlight exactly which rules failed.
func (p *PasswordChecker) CheckStrength(password string) error {
	requirements := map[string]bool{
		"length":    len(password) >= minPasswordLength,
		"uppercase": false,
		"numbers":   false,
	}

	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			requirements["uppercase"] = true
		case r >= '0' && r <= '9':
			requirements["numbers"] = true
		}
	}

	for _, ok := range requirements {
		if !ok {
			return apperrors.New(apperrors.ErrAuthWeakPassword).
				WithField("password").
				WithRequirements(requirements)
		}
	}

	return nil
}

// Hash returns the bcrypt hash of a password
func (p *PasswordChecker) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches the stored hash
func (p *PasswordChecker) Verify(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
