package biz

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leafcare/terrarium-backend/internal/auth"
	"github.com/leafcare/terrarium-backend/internal/media"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
	"github.com/leafcare/terrarium-backend/internal/pkg/workerpool"
	"github.com/leafcare/terrarium-backend/internal/session"
)

type fakeUserRepo struct {
	users  map[uint]*User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*User), nextID: 1}
}

func (r *fakeUserRepo) Create(_ context.Context, user *User) error {
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uint) (*User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrUserNotFound)
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByLogin(_ context.Context, login string) (*User, error) {
	for _, user := range r.users {
		if user.Username == login || user.Email == login {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrUserNotFound)
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrUserNotFound)
}

func (r *fakeUserRepo) UsernameTaken(_ context.Context, username string, excludeID uint) (bool, error) {
	for _, user := range r.users {
		if user.Username == username && user.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) EmailTaken(_ context.Context, email string, excludeID uint) (bool, error) {
	for _, user := range r.users {
		if user.Email == email && user.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) Update(_ context.Context, id uint, fields map[string]interface{}) error {
	user, ok := r.users[id]
	if !ok {
		return apperrors.New(apperrors.ErrUserNotFound)
	}
	for column, value := range fields {
		switch column {
		case "username":
			user.Username = value.(string)
		case "email":
			user.Email = value.(string)
		case "verified":
			user.Verified = value.(bool)
		case "public":
			user.Public = value.(bool)
		case "first_name":
			user.FirstName = stringOrNil(value)
		case "last_name":
			user.LastName = stringOrNil(value)
		case "bio":
			user.Bio = stringOrNil(value)
		}
	}
	return nil
}

func stringOrNil(value interface{}) *string {
	if value == nil {
		return nil
	}
	s := value.(string)
	return &s
}

func (r *fakeUserRepo) SetPassword(_ context.Context, id uint, hash string) error {
	user, ok := r.users[id]
	if !ok {
		return apperrors.New(apperrors.ErrUserNotFound)
	}
	user.PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) SetVerified(_ context.Context, id uint) error {
	user, ok := r.users[id]
	if !ok {
		return apperrors.New(apperrors.ErrUserNotFound)
	}
	user.Verified = true
	return nil
}

func (r *fakeUserRepo) SetAvatar(_ context.Context, id uint, file *media.LocalFile) (*uint, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrUserNotFound)
	}
	old := user.HashID
	hashID := uint(100)
	user.HashID = &hashID
	return old, nil
}

func (r *fakeUserRepo) ClearAvatar(_ context.Context, id uint) (*uint, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrUserNotFound)
	}
	old := user.HashID
	user.HashID = nil
	user.Avatar = nil
	return old, nil
}

type fakeTokens struct {
	sessions     map[string]uint
	recovery     map[string]uint
	verification map[string]uint
	deletedAll   []uint
	counter      int
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{
		sessions:     make(map[string]uint),
		recovery:     make(map[string]uint),
		verification: make(map[string]uint),
	}
}

func (t *fakeTokens) Create(_ context.Context, userID uint, role string) (*session.Session, error) {
	t.counter++
	id := fmt.Sprintf("sess-%d", t.counter)
	t.sessions[id] = userID
	return &session.Session{ID: id, UserID: userID, Role: role}, nil
}

func (t *fakeTokens) Delete(_ context.Context, id string) error {
	delete(t.sessions, id)
	return nil
}

func (t *fakeTokens) DeleteAllForUser(_ context.Context, userID uint) error {
	t.deletedAll = append(t.deletedAll, userID)
	for id, owner := range t.sessions {
		if owner == userID {
			delete(t.sessions, id)
		}
	}
	return nil
}

func (t *fakeTokens) CreateRecovery(_ context.Context, userID uint, _ time.Duration) (string, error) {
	t.counter++
	token := fmt.Sprintf("recovery-%d", t.counter)
	t.recovery[token] = userID
	return token, nil
}

func (t *fakeTokens) ConsumeRecovery(_ context.Context, token string) (uint, error) {
	userID, ok := t.recovery[token]
	if !ok {
		return 0, session.ErrNotFound
	}
	delete(t.recovery, token)
	return userID, nil
}

func (t *fakeTokens) CreateVerification(_ context.Context, userID uint, _ time.Duration) (string, error) {
	t.counter++
	token := fmt.Sprintf("verify-%d", t.counter)
	t.verification[token] = userID
	return token, nil
}

func (t *fakeTokens) ConsumeVerification(_ context.Context, token string) (uint, error) {
	userID, ok := t.verification[token]
	if !ok {
		return 0, session.ErrNotFound
	}
	delete(t.verification, token)
	return userID, nil
}

type sentMail struct {
	kind  string
	to    string
	token string
}

type fakeMailer struct {
	sent chan sentMail
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{sent: make(chan sentMail, 8)}
}

func (m *fakeMailer) SendVerification(_ context.Context, to string, _ string, token string) error {
	m.sent <- sentMail{kind: "verification", to: to, token: token}
	return nil
}

func (m *fakeMailer) SendRecovery(_ context.Context, to string, _ string, token string, _ time.Duration) error {
	m.sent <- sentMail{kind: "recovery", to: to, token: token}
	return nil
}

func (m *fakeMailer) waitForMail(t *testing.T) sentMail {
	t.Helper()
	select {
	case mail := <-m.sent:
		return mail
	case <-time.After(2 * time.Second):
		t.Fatal("expected a mail to be sent")
		return sentMail{}
	}
}

type fakeAvatarStore struct {
	ingested []string
	released []uint
}

func (s *fakeAvatarStore) Ingest(_ context.Context, tempPath string) (*media.LocalFile, error) {
	s.ingested = append(s.ingested, tempPath)
	return &media.LocalFile{Hash: "abc"}, nil
}

func (s *fakeAvatarStore) Release(_ context.Context, hashID uint) error {
	s.released = append(s.released, hashID)
	return nil
}

type userFixture struct {
	uc     *UserUseCase
	repo   *fakeUserRepo
	tokens *fakeTokens
	mailer *fakeMailer
	store  *fakeAvatarStore
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	pool, err := workerpool.New(&workerpool.Config{Workers: 2}, logger.Nop().Logger)
	require.NoError(t, err)
	t.Cleanup(pool.Shutdown)

	repo := newFakeUserRepo()
	tokens := newFakeTokens()
	mailer := newFakeMailer()
	store := &fakeAvatarStore{}

	uc := NewUserUseCase(
		repo,
		auth.NewPasswordChecker(4),
		auth.NewJWTManager("test-secret", "terrarium"),
		tokens,
		mailer,
		store,
		pool,
		time.Hour,
		logger.Nop(),
	)

	return &userFixture{uc: uc, repo: repo, tokens: tokens, mailer: mailer, store: store}
}

func (f *userFixture) register(t *testing.T) *User {
	t.Helper()
	user, err := f.uc.Register(context.Background(), &RegisterInput{
		Username: "fernando",
		Email:    "fern@example.com",
		Password: "Tradescantia9",
	})
	require.NoError(t, err)
	f.mailer.waitForMail(t)
	return user
}

func TestRegister(t *testing.T) {
	f := newUserFixture(t)

	user, err := f.uc.Register(context.Background(), &RegisterInput{
		Username: "fernando",
		Email:    "Fern@Example.com ",
		Password: "Tradescantia9",
	})
	require.NoError(t, err)

	assert.Equal(t, "fernando", user.Username)
	assert.Equal(t, "fern@example.com", user.Email)
	assert.Equal(t, auth.RoleUser, user.Role)
	assert.False(t, user.Verified)
	assert.NotEqual(t, "Tradescantia9", user.PasswordHash)

	mail := f.mailer.waitForMail(t)
	assert.Equal(t, "verification", mail.kind)
	assert.Equal(t, "fern@example.com", mail.to)
	assert.Equal(t, user.ID, f.tokens.verification[mail.token])
}

func TestRegisterRejectsBadInput(t *testing.T) {
	f := newUserFixture(t)
	f.register(t)

	tests := []struct {
		name     string
		input    RegisterInput
		wantCode int
	}{
		{
			name:     "username taken",
			input:    RegisterInput{Username: "fernando", Email: "other@example.com", Password: "Tradescantia9"},
			wantCode: apperrors.ErrUserExists,
		},
		{
			name:     "email taken",
			input:    RegisterInput{Username: "rosa", Email: "fern@example.com", Password: "Tradescantia9"},
			wantCode: apperrors.ErrUserExists,
		},
		{
			name:     "invalid username",
			input:    RegisterInput{Username: "a b", Email: "ok@example.com", Password: "Tradescantia9"},
			wantCode: apperrors.ErrUserInvalidInput,
		},
		{
			name:     "invalid email",
			input:    RegisterInput{Username: "rosa", Email: "not-an-email", Password: "Tradescantia9"},
			wantCode: apperrors.ErrUserInvalidEmail,
		},
		{
			name:     "weak password",
			input:    RegisterInput{Username: "rosa", Email: "rosa@example.com", Password: "short"},
			wantCode: apperrors.ErrAuthWeakPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.Register(context.Background(), &tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.ExtractCode(err))
		})
	}
}

func TestSignIn(t *testing.T) {
	f := newUserFixture(t)
	registered := f.register(t)

	user, sess, token, err := f.uc.SignIn(context.Background(), "fernando", "Tradescantia9")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, registered.ID, sess.UserID)
	assert.NotEmpty(t, token)

	// email works as the login too
	_, _, _, err = f.uc.SignIn(context.Background(), "fern@example.com", "Tradescantia9")
	require.NoError(t, err)
}

func TestSignInUniformFailure(t *testing.T) {
	f := newUserFixture(t)
	f.register(t)

	_, _, _, wrongPassword := f.uc.SignIn(context.Background(), "fernando", "WrongPassword1")
	_, _, _, noAccount := f.uc.SignIn(context.Background(), "nobody", "WrongPassword1")

	assert.Equal(t, apperrors.ErrAuthInvalidCredentials, apperrors.ExtractCode(wrongPassword))
	assert.Equal(t, apperrors.ErrAuthInvalidCredentials, apperrors.ExtractCode(noAccount))
}

func TestGetHidesPrivateProfiles(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t)

	self := auth.Requester{UserID: user.ID, SignedIn: true, Role: auth.RoleUser}
	stranger := auth.Requester{UserID: 99, SignedIn: true, Role: auth.RoleUser}
	admin := auth.Requester{UserID: 98, SignedIn: true, Role: auth.RoleAdmin}

	_, err := f.uc.Get(context.Background(), self, user.ID)
	assert.NoError(t, err)

	_, err = f.uc.Get(context.Background(), stranger, user.ID)
	assert.Equal(t, apperrors.ErrUserNotFound, apperrors.ExtractCode(err))

	_, err = f.uc.Get(context.Background(), admin, user.ID)
	assert.NoError(t, err)

	require.NoError(t, f.repo.Update(context.Background(), user.ID, map[string]interface{}{"public": true}))
	_, err = f.uc.Get(context.Background(), auth.Requester{}, user.ID)
	assert.NoError(t, err)
}

func TestModifyEmailResetsVerification(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t)
	require.NoError(t, f.repo.SetVerified(context.Background(), user.ID))

	email := "new@example.com"
	updated, err := f.uc.Modify(context.Background(), user.ID, &UpdateProfile{Email: &email})
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", updated.Email)
	assert.False(t, updated.Verified)

	mail := f.mailer.waitForMail(t)
	assert.Equal(t, "verification", mail.kind)
	assert.Equal(t, "new@example.com", mail.to)
}

func TestModifyClearsEmptyFields(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t)

	bio := "collects calatheas"
	updated, err := f.uc.Modify(context.Background(), user.ID, &UpdateProfile{Bio: &bio})
	require.NoError(t, err)
	require.NotNil(t, updated.Bio)

	empty := ""
	updated, err = f.uc.Modify(context.Background(), user.ID, &UpdateProfile{Bio: &empty})
	require.NoError(t, err)
	assert.Nil(t, updated.Bio)
}

func TestChangePassword(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t)
	_, _, _, err := f.uc.SignIn(context.Background(), "fernando", "Tradescantia9")
	require.NoError(t, err)

	err = f.uc.ChangePassword(context.Background(), user.ID, "WrongPassword1", "Philodendron7")
	assert.Equal(t, apperrors.ErrAuthInvalidCredentials, apperrors.ExtractCode(err))

	err = f.uc.ChangePassword(context.Background(), user.ID, "Tradescantia9", "weak")
	assert.Equal(t, apperrors.ErrAuthWeakPassword, apperrors.ExtractCode(err))

	require.NoError(t, f.uc.ChangePassword(context.Background(), user.ID, "Tradescantia9", "Philodendron7"))
	assert.Contains(t, f.tokens.deletedAll, user.ID)

	_, _, _, err = f.uc.SignIn(context.Background(), "fernando", "Philodendron7")
	assert.NoError(t, err)
}

func TestForgotPasswordIsSilentForUnknownEmail(t *testing.T) {
	f := newUserFixture(t)
	f.register(t)

	require.NoError(t, f.uc.ForgotPassword(context.Background(), "unknown@example.com"))
	select {
	case mail := <-f.mailer.sent:
		t.Fatalf("no mail expected, got %v", mail)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestResetPassword(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t)

	require.NoError(t, f.uc.ForgotPassword(context.Background(), "fern@example.com"))
	mail := f.mailer.waitForMail(t)
	require.Equal(t, "recovery", mail.kind)

	require.NoError(t, f.uc.ResetPassword(context.Background(), mail.token, "Philodendron7"))
	assert.Contains(t, f.tokens.deletedAll, user.ID)

	_, _, _, err := f.uc.SignIn(context.Background(), "fernando", "Philodendron7")
	assert.NoError(t, err)

	// single use
	err = f.uc.ResetPassword(context.Background(), mail.token, "Philodendron8")
	assert.Equal(t, apperrors.ErrRecoveryTokenUsed, apperrors.ExtractCode(err))
}

func TestVerifyEmail(t *testing.T) {
	f := newUserFixture(t)

	user, err := f.uc.Register(context.Background(), &RegisterInput{
		Username: "fernando",
		Email:    "fern@example.com",
		Password: "Tradescantia9",
	})
	require.NoError(t, err)
	mail := f.mailer.waitForMail(t)

	require.NoError(t, f.uc.VerifyEmail(context.Background(), mail.token))

	verified, err := f.repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, verified.Verified)

	err = f.uc.VerifyEmail(context.Background(), mail.token)
	assert.Equal(t, apperrors.ErrAuthInvalidToken, apperrors.ExtractCode(err))
}

func TestSetAvatarReleasesPrevious(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t)

	_, err := f.uc.SetAvatar(context.Background(), user.ID, "/tmp/upload-1")
	require.NoError(t, err)
	assert.Empty(t, f.store.released)

	_, err = f.uc.SetAvatar(context.Background(), user.ID, "/tmp/upload-2")
	require.NoError(t, err)
	assert.Equal(t, []uint{100}, f.store.released)

	require.NoError(t, f.uc.ClearAvatar(context.Background(), user.ID))
	assert.Equal(t, []uint{100, 100}, f.store.released)
}
