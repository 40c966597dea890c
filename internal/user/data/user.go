package data

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/leafcare/terrarium-backend/internal/media"
	"github.com/leafcare/terrarium-backend/internal/pkg/database"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
	"github.com/leafcare/terrarium-backend/internal/user/biz"
)

// UserPO represents the database model
type UserPO struct {
	ID           uint          `gorm:"primarykey"`
	Username     string        `gorm:"size:30;not null;uniqueIndex:idx_users_username"`
	Email        string        `gorm:"size:255;not null;uniqueIndex:idx_users_email"`
	FirstName    *string       `gorm:"size:50"`
	LastName     *string       `gorm:"size:50"`
	Bio          *string       `gorm:"size:500"`
	Role         string        `gorm:"size:20;not null;default:'USER'"`
	Public       bool          `gorm:"not null;default:false"`
	Verified     bool          `gorm:"not null;default:false"`
	PasswordHash string        `gorm:"size:100;not null"`
	HashID       *uint         `gorm:"index"`
	Avatar       media.MapJSON `gorm:"type:jsonb"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserPO) TableName() string {
	return "users"
}

// UserRepo implements biz.UserRepo
type UserRepo struct {
	db    *database.DB
	store *media.Store
}

func NewUserRepo(db *database.DB, store *media.Store) biz.UserRepo {
	return &UserRepo{db: db, store: store}
}

func (r *UserRepo) Create(ctx context.Context, user *biz.User) error {
	po := &UserPO{
		Username:     user.Username,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Role:         user.Role,
		PasswordHash: user.PasswordHash,
	}

	if err := r.db.GetDB().WithContext(ctx).Create(po).Error; err != nil {
		if database.IsDuplicateKeyError(err) {
			return apperrors.New(apperrors.ErrUserExists)
		}
		return err
	}

	user.ID = po.ID
	user.CreatedAt = po.CreatedAt
	user.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uint) (*biz.User, error) {
	var po UserPO
	err := r.db.GetDB().WithContext(ctx).First(&po, id).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrUserNotFound)
		}
		return nil, err
	}
	return toUser(&po), nil
}

// GetByLogin resolves a sign-in identifier, which may be a username or
// an email address.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (*biz.User, error) {
	var po UserPO
	err := r.db.GetDB().WithContext(ctx).
		Where("username = ? OR email = ?", login, login).
		Take(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrUserNotFound)
		}
		return nil, err
	}
	return toUser(&po), nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*biz.User, error) {
	var po UserPO
	err := r.db.GetDB().WithContext(ctx).
		Where("email = ?", email).
		Take(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrUserNotFound)
		}
		return nil, err
	}
	return toUser(&po), nil
}

func (r *UserRepo) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	return database.Exists(ctx, r.db.GetDB(), &UserPO{},
		"username = ? AND id <> ?", username, excludeID)
}

func (r *UserRepo) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	return database.Exists(ctx, r.db.GetDB(), &UserPO{},
		"email = ? AND id <> ?", email, excludeID)
}

func (r *UserRepo) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	err := r.db.GetDB().WithContext(ctx).
		Model(&UserPO{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil && database.IsDuplicateKeyError(err) {
		return apperrors.New(apperrors.ErrUserExists)
	}
	return err
}

func (r *UserRepo) SetPassword(ctx context.Context, id uint, hash string) error {
	return r.db.GetDB().WithContext(ctx).
		Model(&UserPO{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}

func (r *UserRepo) SetVerified(ctx context.Context, id uint) error {
	return r.db.GetDB().WithContext(ctx).
		Model(&UserPO{}).
		Where("id = ?", id).
		Update("verified", true).Error
}

// SetAvatar persists the uploaded image's hash and points the account
// at it, in one transaction. The previous hash id is returned so the
// caller can release it after commit.
func (r *UserRepo) SetAvatar(ctx context.Context, id uint, file *media.LocalFile) (*uint, error) {
	var oldHashID *uint

	err := r.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var po UserPO
		if err := tx.First(&po, id).Error; err != nil {
			if database.IsRecordNotFoundError(err) {
				return apperrors.New(apperrors.ErrUserNotFound)
			}
			return err
		}
		oldHashID = po.HashID

		hash, err := r.store.Persist(ctx, tx, file)
		if err != nil {
			return err
		}

		return tx.Model(&UserPO{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"hash_id": hash.ID,
				"avatar":  avatarMap(hash),
			}).Error
	})
	if err != nil {
		return nil, err
	}

	return oldHashID, nil
}

func (r *UserRepo) ClearAvatar(ctx context.Context, id uint) (*uint, error) {
	var po UserPO
	err := r.db.GetDB().WithContext(ctx).First(&po, id).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrUserNotFound)
		}
		return nil, err
	}

	err = r.db.GetDB().WithContext(ctx).
		Model(&UserPO{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"hash_id": nil,
			"avatar":  nil,
		}).Error
	if err != nil {
		return nil, err
	}

	return po.HashID, nil
}

func avatarMap(hash *media.Hash) media.MapJSON {
	if len(hash.WebPPaths) > 0 && len(hash.LocalPaths) == 0 {
		return hash.WebPPaths
	}
	return hash.LocalPaths
}

func toUser(po *UserPO) *biz.User {
	return &biz.User{
		ID:           po.ID,
		Username:     po.Username,
		Email:        po.Email,
		FirstName:    po.FirstName,
		LastName:     po.LastName,
		Bio:          po.Bio,
		Role:         po.Role,
		Public:       po.Public,
		Verified:     po.Verified,
		PasswordHash: po.PasswordHash,
		HashID:       po.HashID,
		Avatar:       po.Avatar,
		CreatedAt:    po.CreatedAt,
		UpdatedAt:    po.UpdatedAt,
	}
}
