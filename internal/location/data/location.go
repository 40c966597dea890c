package data

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/leafcare/terrarium-backend/internal/location/biz"
	"github.com/leafcare/terrarium-backend/internal/media"
	"github.com/leafcare/terrarium-backend/internal/pkg/database"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
)

// LocationPO represents the database model
type LocationPO struct {
	ID        uint          `gorm:"primarykey"`
	UserID    uint          `gorm:"not null;index:idx_locations_user_id"`
	Name      string        `gorm:"size:100;not null"`
	Light     string        `gorm:"size:20;not null"`
	Public    bool          `gorm:"not null;default:false"`
	HashID    *uint         `gorm:"index"`
	Pictures  media.MapJSON `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LocationPO) TableName() string {
	return "locations"
}

// LocationRepo implements biz.LocationRepo
type LocationRepo struct {
	db    *database.DB
	store *media.Store
}

func NewLocationRepo(db *database.DB, store *media.Store) biz.LocationRepo {
	return &LocationRepo{db: db, store: store}
}

func (r *LocationRepo) Create(ctx context.Context, location *biz.Location) error {
	po := &LocationPO{
		UserID: location.UserID,
		Name:   location.Name,
		Light:  location.Light,
		Public: location.Public,
	}

	if err := r.db.GetDB().WithContext(ctx).Create(po).Error; err != nil {
		return err
	}

	location.ID = po.ID
	location.CreatedAt = po.CreatedAt
	location.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *LocationRepo) GetByID(ctx context.Context, id uint) (*biz.Location, error) {
	var po LocationPO
	err := r.db.GetDB().WithContext(ctx).First(&po, id).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrLocationNotFound)
		}
		return nil, err
	}

	location := toLocation(&po)

	err = r.db.GetDB().WithContext(ctx).
		Table("plants").
		Where("location_id = ?", id).
		Count(&location.PlantCount).Error
	if err != nil {
		return nil, err
	}

	return location, nil
}

func (r *LocationRepo) ListByOwner(ctx context.Context, ownerID uint) ([]*biz.Location, error) {
	type locationRow struct {
		LocationPO
		PlantCount int64
	}

	var rows []locationRow
	err := r.db.GetDB().WithContext(ctx).
		Table("locations").
		Select("locations.*, (SELECT COUNT(*) FROM plants WHERE plants.location_id = locations.id) AS plant_count").
		Where("locations.user_id = ?", ownerID).
		Order("locations.name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	locations := make([]*biz.Location, len(rows))
	for i := range rows {
		locations[i] = toLocation(&rows[i].LocationPO)
		locations[i].PlantCount = rows[i].PlantCount
	}

	return locations, nil
}

func (r *LocationRepo) Update(ctx context.Context, location *biz.Location) error {
	return r.db.GetDB().WithContext(ctx).
		Model(&LocationPO{}).
		Where("id = ?", location.ID).
		Updates(map[string]interface{}{
			"name":   location.Name,
			"light":  location.Light,
			"public": location.Public,
		}).Error
}

func (r *LocationRepo) Delete(ctx context.Context, id uint) error {
	return r.db.GetDB().WithContext(ctx).Delete(&LocationPO{}, id).Error
}

// SetPicture persists the uploaded image's hash and points the location
// at it, in one transaction. The previous hash id is returned so the
// caller can release it after commit.
func (r *LocationRepo) SetPicture(ctx context.Context, id uint, file *media.LocalFile) (*uint, error) {
	var oldHashID *uint

	err := r.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var po LocationPO
		if err := tx.First(&po, id).Error; err != nil {
			if database.IsRecordNotFoundError(err) {
				return apperrors.New(apperrors.ErrLocationNotFound)
			}
			return err
		}
		oldHashID = po.HashID

		hash, err := r.store.Persist(ctx, tx, file)
		if err != nil {
			return err
		}

		return tx.Model(&LocationPO{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"hash_id":  hash.ID,
				"pictures": pictureMap(hash),
			}).Error
	})
	if err != nil {
		return nil, err
	}

	return oldHashID, nil
}

func (r *LocationRepo) ClearPicture(ctx context.Context, id uint) (*uint, error) {
	var po LocationPO
	err := r.db.GetDB().WithContext(ctx).First(&po, id).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrLocationNotFound)
		}
		return nil, err
	}

	err = r.db.GetDB().WithContext(ctx).
		Model(&LocationPO{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"hash_id":  nil,
			"pictures": nil,
		}).Error
	if err != nil {
		return nil, err
	}

	return po.HashID, nil
}

func pictureMap(hash *media.Hash) media.MapJSON {
	if len(hash.WebPPaths) > 0 && len(hash.LocalPaths) == 0 {
		return hash.WebPPaths
	}
	return hash.LocalPaths
}

func toLocation(po *LocationPO) *biz.Location {
	return &biz.Location{
		ID:        po.ID,
		UserID:    po.UserID,
		Name:      po.Name,
		Light:     po.Light,
		Public:    po.Public,
		HashID:    po.HashID,
		Pictures:  po.Pictures,
		CreatedAt: po.CreatedAt,
		UpdatedAt: po.UpdatedAt,
	}
}
