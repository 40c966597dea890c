package data

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/leafcare/terrarium-backend/internal/media"
	"github.com/leafcare/terrarium-backend/internal/photo/biz"
	"github.com/leafcare/terrarium-backend/internal/pkg/database"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
)

// PhotoPO represents the database model
type PhotoPO struct {
	ID          uint    `gorm:"primarykey"`
	UserID      uint    `gorm:"not null;index:idx_photos_user_id"`
	PlantID     uint    `gorm:"not null;index:idx_photos_plant_id"`
	HashID      uint    `gorm:"not null;index:idx_photos_hash_id"`
	Description *string `gorm:"type:text"`
	Public      bool    `gorm:"not null;default:false"`
	TakenAt     time.Time `gorm:"not null;index:idx_photos_taken_at"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (PhotoPO) TableName() string {
	return "photos"
}

// PhotoRepo implements biz.PhotoRepo
type PhotoRepo struct {
	db    *database.DB
	store *media.Store
}

func NewPhotoRepo(db *database.DB, store *media.Store) biz.PhotoRepo {
	return &PhotoRepo{db: db, store: store}
}

// CreateBatch records an upload batch in one transaction: every file's
// hash is upserted (incrementing references for duplicates) and one
// photo row inserted per file. All or nothing.
func (r *PhotoRepo) CreateBatch(ctx context.Context, photos []*biz.Photo, files []*media.LocalFile) error {
	return r.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		for i, photo := range photos {
			hash, err := r.store.Persist(ctx, tx, files[i])
			if err != nil {
				return err
			}

			po := &PhotoPO{
				UserID:      photo.UserID,
				PlantID:     photo.PlantID,
				HashID:      hash.ID,
				Description: photo.Description,
				Public:      photo.Public,
				TakenAt:     photo.TakenAt,
			}

			if err := tx.Create(po).Error; err != nil {
				return err
			}

			photo.ID = po.ID
			photo.HashID = hash.ID
			photo.Images = hash.LocalPaths
			photo.WebP = hash.WebPPaths
			photo.CreatedAt = po.CreatedAt
			photo.UpdatedAt = po.UpdatedAt
		}
		return nil
	})
}

// photoRow carries the hash paths alongside the photo columns
type photoRow struct {
	PhotoPO
	LocalPaths media.MapJSON
	WebPPaths  media.MapJSON
}

func (r *PhotoRepo) GetByID(ctx context.Context, id uint) (*biz.Photo, error) {
	var row photoRow

	err := r.db.GetDB().WithContext(ctx).
		Table("photos").
		Select("photos.*, hashes.local_paths, hashes.webp_paths").
		Joins("JOIN hashes ON hashes.id = photos.hash_id").
		Where("photos.id = ?", id).
		Take(&row).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrPhotoNotFound)
		}
		return nil, err
	}

	return toPhoto(&row), nil
}

func (r *PhotoRepo) ListByPlant(ctx context.Context, plantID uint, publicOnly bool) ([]*biz.Photo, error) {
	var rows []photoRow

	err := r.db.GetDB().WithContext(ctx).
		Table("photos").
		Select("photos.*, hashes.local_paths, hashes.webp_paths").
		Joins("JOIN hashes ON hashes.id = photos.hash_id").
		Where("photos.plant_id = ?", plantID).
		Scopes(database.WhereIf(publicOnly, "photos.public = ?", true)).
		Order("photos.taken_at ASC, photos.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	photos := make([]*biz.Photo, len(rows))
	for i := range rows {
		photos[i] = toPhoto(&rows[i])
	}

	return photos, nil
}

func (r *PhotoRepo) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.db.GetDB().WithContext(ctx).
		Model(&PhotoPO{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *PhotoRepo) Delete(ctx context.Context, id uint, ownerID uint) (uint, bool, error) {
	var hashID uint
	deleted := false

	err := r.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var po PhotoPO
		err := tx.Where("id = ? AND user_id = ?", id, ownerID).Take(&po).Error
		if err != nil {
			if database.IsRecordNotFoundError(err) {
				return nil
			}
			return err
		}

		if err := tx.Delete(&PhotoPO{}, po.ID).Error; err != nil {
			return err
		}

		hashID = po.HashID
		deleted = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}

	return hashID, deleted, nil
}

// Navigation finds the photos on either side of the given one within
// the same plant, ordered by (taken_at, id).
func (r *PhotoRepo) Navigation(ctx context.Context, photo *biz.Photo, publicOnly bool) (*biz.Navigation, error) {
	nav := &biz.Navigation{}

	base := func() *gorm.DB {
		return r.db.GetDB().WithContext(ctx).
			Model(&PhotoPO{}).
			Where("plant_id = ?", photo.PlantID).
			Scopes(database.WhereIf(publicOnly, "public = ?", true))
	}

	var prev PhotoPO
	err := base().
		Where("(taken_at, id) < (?, ?)", photo.TakenAt, photo.ID).
		Order("taken_at DESC, id DESC").
		Take(&prev).Error
	if err == nil {
		nav.PrevID = &prev.ID
	} else if !database.IsRecordNotFoundError(err) {
		return nil, err
	}

	var next PhotoPO
	err = base().
		Where("(taken_at, id) > (?, ?)", photo.TakenAt, photo.ID).
		Order("taken_at ASC, id ASC").
		Take(&next).Error
	if err == nil {
		nav.NextID = &next.ID
	} else if !database.IsRecordNotFoundError(err) {
		return nil, err
	}

	return nav, nil
}

func (r *PhotoRepo) HashIDsForPlant(ctx context.Context, plantID uint, ownerID uint) ([]uint, error) {
	var ids []uint
	err := r.db.GetDB().WithContext(ctx).
		Model(&PhotoPO{}).
		Where("plant_id = ? AND user_id = ?", plantID, ownerID).
		Pluck("hash_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PhotoRepo) DeleteAllForPlant(ctx context.Context, plantID uint, ownerID uint) error {
	return r.db.GetDB().WithContext(ctx).
		Where("plant_id = ? AND user_id = ?", plantID, ownerID).
		Delete(&PhotoPO{}).Error
}

func toPhoto(row *photoRow) *biz.Photo {
	return &biz.Photo{
		ID:          row.ID,
		UserID:      row.UserID,
		PlantID:     row.PlantID,
		HashID:      row.HashID,
		Description: row.Description,
		Public:      row.Public,
		TakenAt:     row.TakenAt,
		Images:      row.LocalPaths,
		WebP:        row.WebPPaths,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
