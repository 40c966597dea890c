package biz

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leafcare/terrarium-backend/internal/auth"
	"github.com/leafcare/terrarium-backend/internal/media"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
	"github.com/leafcare/terrarium-backend/internal/pkg/workerpool"
	"github.com/leafcare/terrarium-backend/internal/session"
)

// User is an account holding a plant collection
type User struct {
	ID           uint
	Username     string
	Email        string
	FirstName    *string
	LastName     *string
	Bio          *string
	Role         string
	Public       bool
	Verified     bool
	PasswordHash string
	HashID       *uint
	Avatar       media.MapJSON
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterInput is the sign-up payload
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName *string
	LastName  *string
}

// UpdateProfile is the typed profile patch
type UpdateProfile struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Bio       *string
	Public    *bool
}

// UserRepo defines the interface for user data operations
type UserRepo interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByLogin(ctx context.Context, login string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	SetPassword(ctx context.Context, id uint, hash string) error
	SetVerified(ctx context.Context, id uint) error
	SetAvatar(ctx context.Context, id uint, file *media.LocalFile) (oldHashID *uint, err error)
	ClearAvatar(ctx context.Context, id uint) (oldHashID *uint, err error)
}

// Mailer sends the account mails. Implemented by the mailer package.
type Mailer interface {
	SendVerification(ctx context.Context, to string, username string, token string) error
	SendRecovery(ctx context.Context, to string, username string, token string, ttl time.Duration) error
}

// MediaStore is the slice of the content store used for avatars
type MediaStore interface {
	Ingest(ctx context.Context, tempPath string) (*media.LocalFile, error)
	Release(ctx context.Context, hashID uint) error
}

// Tokens covers the redis-backed token operations the account flow
// needs: sessions, recovery tokens, verification tokens.
type Tokens interface {
	Create(ctx context.Context, userID uint, role string) (*session.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID uint) error
	CreateRecovery(ctx context.Context, userID uint, ttl time.Duration) (string, error)
	ConsumeRecovery(ctx context.Context, token string) (uint, error)
	CreateVerification(ctx context.Context, userID uint, ttl time.Duration) (string, error)
	ConsumeVerification(ctx context.Context, token string) (uint, error)
}

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,30}$`)

const verificationTTL = 48 * time.Hour

// UserUseCase contains business logic for account operations
type UserUseCase struct {
	repo        UserRepo
	passwords   *auth.PasswordChecker
	jwt         *auth.JWTManager
	tokens      Tokens
	mailer      Mailer
	store       MediaStore
	pool        *workerpool.Pool
	recoveryTTL time.Duration
	logger      *logger.Logger
}

func NewUserUseCase(
	repo UserRepo,
	passwords *auth.PasswordChecker,
	jwt *auth.JWTManager,
	tokens Tokens,
	m Mailer,
	store MediaStore,
	pool *workerpool.Pool,
	recoveryTTL time.Duration,
	log *logger.Logger,
) *UserUseCase {
	return &UserUseCase{
		repo:        repo,
		passwords:   passwords,
		jwt:         jwt,
		tokens:      tokens,
		mailer:      m,
		store:       store,
		pool:        pool,
		recoveryTTL: recoveryTTL,
		logger:      log,
	}
}

// Register creates an account. Uniqueness conflicts name the offending
// field; the password policy failure carries its requirement breakdown.
func (uc *UserUseCase) Register(ctx context.Context, input *RegisterInput) (*User, error) {
	username := strings.TrimSpace(input.Username)
	if !usernameRe.MatchString(username) {
		return nil, apperrors.New(apperrors.ErrUserInvalidInput).WithField("username")
	}

	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	if taken, err := uc.repo.UsernameTaken(ctx, username, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, apperrors.New(apperrors.ErrUserExists).WithField("username")
	}
	if taken, err := uc.repo.EmailTaken(ctx, email, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, apperrors.New(apperrors.ErrUserExists).WithField("email")
	}

	if err := uc.passwords.CheckStrength(input.Password); err != nil {
		return nil, err
	}

	hash, err := uc.passwords.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Username:     username,
		Email:        email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         auth.RoleUser,
		PasswordHash: hash,
	}

	if err := uc.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	uc.sendVerificationMail(ctx, user)

	return user, nil
}

// sendVerificationMail delivers the confirmation link off the request
// path; a delivery failure never fails the account operation.
func (uc *UserUseCase) sendVerificationMail(ctx context.Context, user *User) {
	token, err := uc.tokens.CreateVerification(ctx, user.ID, verificationTTL)
	if err != nil {
		uc.logger.Error("failed to create verification token", zap.Error(err))
		return
	}

	email := user.Email
	username := user.Username

	err = uc.pool.Submit(func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := uc.mailer.SendVerification(sendCtx, email, username, token); err != nil {
			uc.logger.Error("failed to send verification mail",
				zap.String("email", email),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		uc.logger.Error("failed to queue verification mail", zap.Error(err))
	}
}

// SignIn authenticates by username or email. Wrong password and
// unknown account produce the same answer.
func (uc *UserUseCase) SignIn(ctx context.Context, login string, password string) (*User, *session.Session, string, error) {
	user, err := uc.repo.GetByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			// burn a comparison so the timing matches a wrong password
			uc.passwords.Verify("$2a$12$C6UzMDM.H6dfI/f/IKcEeO7ZfbqEiCRKtQvmh8u1oQJr1H1sXy0fm", password)
			return nil, nil, "", apperrors.New(apperrors.ErrAuthInvalidCredentials)
		}
		return nil, nil, "", err
	}

	if !uc.passwords.Verify(user.PasswordHash, password) {
		return nil, nil, "", apperrors.New(apperrors.ErrAuthInvalidCredentials)
	}

	sess, err := uc.tokens.Create(ctx, user.ID, user.Role)
	if err != nil {
		return nil, nil, "", err
	}

	token, err := uc.jwt.Generate(user.ID, user.Role)
	if err != nil {
		return nil, nil, "", err
	}

	return user, sess, token, nil
}

// SignOut ends the current session
func (uc *UserUseCase) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return uc.tokens.Delete(ctx, sessionID)
}

// Get loads a profile. Strangers see only public profiles; whether the
// account exists at all is not revealed for private ones.
func (uc *UserUseCase) Get(ctx context.Context, req auth.Requester, id uint) (*User, error) {
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	self := req.SignedIn && (req.UserID == id || req.IsAdmin())
	if !self && !user.Public {
		return nil, apperrors.New(apperrors.ErrUserNotFound)
	}

	return user, nil
}

// Modify patches profile fields. Changing the email resets
// verification and sends a fresh confirmation mail.
func (uc *UserUseCase) Modify(ctx context.Context, id uint, patch *UpdateProfile) (*User, error) {
	fields := make(map[string]interface{})
	emailChanged := false

	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if !usernameRe.MatchString(username) {
			return nil, apperrors.New(apperrors.ErrUserInvalidInput).WithField("username")
		}
		if taken, err := uc.repo.UsernameTaken(ctx, username, id); err != nil {
			return nil, err
		} else if taken {
			return nil, apperrors.New(apperrors.ErrUserExists).WithField("username")
		}
		fields["username"] = username
	}

	if patch.Email != nil {
		email, err := normalizeEmail(*patch.Email)
		if err != nil {
			return nil, err
		}
		if taken, err := uc.repo.EmailTaken(ctx, email, id); err != nil {
			return nil, err
		} else if taken {
			return nil, apperrors.New(apperrors.ErrUserExists).WithField("email")
		}
		fields["email"] = email
		fields["verified"] = false
		emailChanged = true
	}

	if patch.FirstName != nil {
		fields["first_name"] = emptyToNil(patch.FirstName)
	}
	if patch.LastName != nil {
		fields["last_name"] = emptyToNil(patch.LastName)
	}
	if patch.Bio != nil {
		fields["bio"] = emptyToNil(patch.Bio)
	}
	if patch.Public != nil {
		fields["public"] = *patch.Public
	}

	if len(fields) > 0 {
		if err := uc.repo.Update(ctx, id, fields); err != nil {
			return nil, err
		}
	}

	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if emailChanged {
		uc.sendVerificationMail(ctx, user)
	}

	return user, nil
}

// ChangePassword rotates the password for a signed-in user. Every
// other session dies with the old password.
func (uc *UserUseCase) ChangePassword(ctx context.Context, id uint, current string, next string) error {
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !uc.passwords.Verify(user.PasswordHash, current) {
		return apperrors.New(apperrors.ErrAuthInvalidCredentials)
	}

	if err := uc.passwords.CheckStrength(next); err != nil {
		return err
	}

	hash, err := uc.passwords.Hash(next)
	if err != nil {
		return err
	}

	if err := uc.repo.SetPassword(ctx, id, hash); err != nil {
		return err
	}

	return uc.tokens.DeleteAllForUser(ctx, id)
}

// ForgotPassword issues a recovery token and mails it. The answer is
// the same whether or not the address has an account.
func (uc *UserUseCase) ForgotPassword(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := uc.repo.GetByEmail(ctx, normalized)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			return nil
		}
		return err
	}

	token, err := uc.tokens.CreateRecovery(ctx, user.ID, uc.recoveryTTL)
	if err != nil {
		return err
	}

	address := user.Email
	username := user.Username
	ttl := uc.recoveryTTL

	err = uc.pool.Submit(func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := uc.mailer.SendRecovery(sendCtx, address, username, token, ttl); err != nil {
			uc.logger.Error("failed to send recovery mail",
				zap.String("email", address),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		uc.logger.Error("failed to queue recovery mail", zap.Error(err))
	}

	return nil
}

// ResetPassword redeems a recovery token and sets a new password. The
// token is single use; all sessions are ended.
func (uc *UserUseCase) ResetPassword(ctx context.Context, token string, next string) error {
	userID, err := uc.tokens.ConsumeRecovery(ctx, token)
	if err != nil {
		if err == session.ErrNotFound {
			return apperrors.New(apperrors.ErrRecoveryTokenUsed)
		}
		return err
	}

	if err := uc.passwords.CheckStrength(next); err != nil {
		return err
	}

	hash, err := uc.passwords.Hash(next)
	if err != nil {
		return err
	}

	if err := uc.repo.SetPassword(ctx, userID, hash); err != nil {
		return err
	}

	return uc.tokens.DeleteAllForUser(ctx, userID)
}

// VerifyEmail redeems a verification token
func (uc *UserUseCase) VerifyEmail(ctx context.Context, token string) error {
	userID, err := uc.tokens.ConsumeVerification(ctx, token)
	if err != nil {
		if err == session.ErrNotFound {
			return apperrors.New(apperrors.ErrAuthInvalidToken)
		}
		return err
	}

	return uc.repo.SetVerified(ctx, userID)
}

// SetAvatar replaces the user's avatar through the content store
func (uc *UserUseCase) SetAvatar(ctx context.Context, id uint, tempPath string) (*User, error) {
	file, err := uc.store.Ingest(ctx, tempPath)
	if err != nil {
		return nil, err
	}

	oldHashID, err := uc.repo.SetAvatar(ctx, id, file)
	if err != nil {
		return nil, err
	}

	if oldHashID != nil {
		_ = uc.store.Release(ctx, *oldHashID)
	}

	return uc.repo.GetByID(ctx, id)
}

// ClearAvatar removes the user's avatar
func (uc *UserUseCase) ClearAvatar(ctx context.Context, id uint) error {
	oldHashID, err := uc.repo.ClearAvatar(ctx, id)
	if err != nil {
		return err
	}

	if oldHashID != nil {
		_ = uc.store.Release(ctx, *oldHashID)
	}

	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperrors.New(apperrors.ErrUserInvalidEmail).WithField("email")
	}

	return email, nil
}

func emptyToNil(s *string) interface{} {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return strings.TrimSpace(*s)
}
