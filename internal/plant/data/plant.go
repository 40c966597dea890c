package data

import (
	"context"
	"time"

	"github.com/leafcare/terrarium-backend/internal/media"
	"github.com/leafcare/terrarium-backend/internal/pkg/database"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
	"github.com/leafcare/terrarium-backend/internal/plant/biz"
)

// PlantPO represents the database model
type PlantPO struct {
	ID          uint    `gorm:"primarykey"`
	UserID      uint    `gorm:"not null;index:idx_plants_user_id"`
	LocationID  uint    `gorm:"not null;index:idx_plants_location_id"`
	SpeciesID   *uint   `gorm:"index"`
	CustomName  *string `gorm:"size:200"`
	SortName    *string `gorm:"size:200;index:idx_plants_sort_name"`
	Description *string `gorm:"type:text"`
	Condition   *string `gorm:"size:20"`
	Public      bool    `gorm:"not null;default:false"`

	WaterFreq *int
	WaterLast *time.Time
	WaterNext *time.Time `gorm:"index:idx_plants_water_next"`
	FertFreq  *int
	FertLast  *time.Time
	FertNext  *time.Time `gorm:"index:idx_plants_fert_next"`

	PotSize *int
	PotType *string `gorm:"size:50"`
	Soil    *string `gorm:"size:100"`
	CoverID *uint

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PlantPO) TableName() string {
	return "plants"
}

// PlantRepo implements biz.PlantRepo
type PlantRepo struct {
	db *database.DB
}

func NewPlantRepo(db *database.DB) biz.PlantRepo {
	return &PlantRepo{db: db}
}

func (r *PlantRepo) Create(ctx context.Context, plant *biz.Plant) error {
	po := toPO(plant)

	if err := r.db.GetDB().WithContext(ctx).Create(po).Error; err != nil {
		return err
	}

	plant.ID = po.ID
	plant.CreatedAt = po.CreatedAt
	plant.UpdatedAt = po.UpdatedAt
	return nil
}

// plantRow carries the species name alongside the plant columns
type plantRow struct {
	PlantPO
	SpeciesName *string
}

func (r *PlantRepo) GetByID(ctx context.Context, id uint) (*biz.Plant, error) {
	var row plantRow

	err := r.db.GetDB().WithContext(ctx).
		Table("plants").
		Select("plants.*, species.name AS species_name").
		Joins("LEFT JOIN species ON species.id = plants.species_id").
		Where("plants.id = ?", id).
		Take(&row).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrPlantNotFound)
		}
		return nil, err
	}

	return toPlant(&row), nil
}

func (r *PlantRepo) List(ctx context.Context, q biz.ListQuery) ([]*biz.Plant, error) {
	tx := r.db.GetDB().WithContext(ctx).
		Table("plants").
		Select("plants.*, species.name AS species_name").
		Joins("LEFT JOIN species ON species.id = plants.species_id").
		Where("plants.user_id = ?", q.OwnerID).
		Scopes(
			database.WhereIf(q.PublicOnly, "plants.public = ?", true),
			database.WhereIf(q.LocationID != 0, "plants.location_id = ?", q.LocationID),
			database.WhereIf(q.Cursor > 0, "plants.id > ?", q.Cursor),
		).
		Limit(database.ClampLimit(q.Limit))

	if q.SortByName {
		tx = tx.Order("plants.sort_name ASC NULLS LAST").Order("plants.id ASC")
	} else {
		tx = tx.Order("plants.id ASC")
	}

	var rows []plantRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}

	plants := make([]*biz.Plant, len(rows))
	for i := range rows {
		plants[i] = toPlant(&rows[i])
	}

	return plants, nil
}

func (r *PlantRepo) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.db.GetDB().WithContext(ctx).
		Model(&PlantPO{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *PlantRepo) SetDerived(ctx context.Context, id uint, waterNext, fertNext *time.Time, sortName *string) error {
	return r.db.GetDB().WithContext(ctx).
		Model(&PlantPO{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"water_next": waterNext,
			"fert_next":  fertNext,
			"sort_name":  sortName,
		}).Error
}

func (r *PlantRepo) Delete(ctx context.Context, id uint, ownerID uint) (bool, error) {
	result := r.db.GetDB().WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&PlantPO{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PlantRepo) IDsAtLocation(ctx context.Context, locationID uint, ownerID uint) ([]uint, error) {
	var ids []uint
	err := r.db.GetDB().WithContext(ctx).
		Model(&PlantPO{}).
		Where("location_id = ? AND user_id = ?", locationID, ownerID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PlantRepo) MoveToLocation(ctx context.Context, ids []uint, ownerID uint, locationID uint) (int64, error) {
	result := r.db.GetDB().WithContext(ctx).
		Model(&PlantPO{}).
		Where("id IN ? AND user_id = ?", ids, ownerID).
		Update("location_id", locationID)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *PlantRepo) Due(ctx context.Context, ownerID uint, now time.Time) ([]*biz.Plant, error) {
	var rows []plantRow

	err := r.db.GetDB().WithContext(ctx).
		Table("plants").
		Select("plants.*, species.name AS species_name").
		Joins("LEFT JOIN species ON species.id = plants.species_id").
		Where("plants.user_id = ?", ownerID).
		Where("(plants.water_next IS NOT NULL AND plants.water_next <= ?) OR (plants.fert_next IS NOT NULL AND plants.fert_next <= ?)", now, now).
		Order("plants.water_next ASC NULLS LAST").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	plants := make([]*biz.Plant, len(rows))
	for i := range rows {
		plants[i] = toPlant(&rows[i])
	}

	return plants, nil
}

// AttachCover loads the plant's cover image paths: the designated cover
// photo when set, otherwise the earliest photo by (taken_at, id).
func (r *PlantRepo) AttachCover(ctx context.Context, plant *biz.Plant) error {
	var row struct {
		LocalPaths media.MapJSON
		WebPPaths  media.MapJSON
	}

	tx := r.db.GetDB().WithContext(ctx).
		Table("photos").
		Select("hashes.local_paths, hashes.webp_paths").
		Joins("JOIN hashes ON hashes.id = photos.hash_id").
		Where("photos.plant_id = ?", plant.ID)

	if plant.CoverID != nil {
		tx = tx.Where("photos.id = ?", *plant.CoverID)
	} else {
		tx = tx.Order("photos.taken_at ASC, photos.id ASC")
	}

	err := tx.Take(&row).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil
		}
		return err
	}

	if len(row.LocalPaths) > 0 {
		plant.Cover = row.LocalPaths
	} else {
		plant.Cover = row.WebPPaths
	}

	return nil
}

func (r *PlantRepo) SpeciesName(ctx context.Context, speciesID uint) (*string, error) {
	var name string
	err := r.db.GetDB().WithContext(ctx).
		Table("species").
		Select("name").
		Where("id = ?", speciesID).
		Take(&name).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrSpeciesNotFound)
		}
		return nil, err
	}

	return &name, nil
}

func toPO(plant *biz.Plant) *PlantPO {
	return &PlantPO{
		ID:          plant.ID,
		UserID:      plant.UserID,
		LocationID:  plant.LocationID,
		SpeciesID:   plant.SpeciesID,
		CustomName:  plant.CustomName,
		SortName:    plant.SortName,
		Description: plant.Description,
		Condition:   plant.Condition,
		Public:      plant.Public,
		WaterFreq:   plant.WaterFreq,
		WaterLast:   plant.WaterLast,
		WaterNext:   plant.WaterNext,
		FertFreq:    plant.FertFreq,
		FertLast:    plant.FertLast,
		FertNext:    plant.FertNext,
		PotSize:     plant.PotSize,
		PotType:     plant.PotType,
		Soil:        plant.Soil,
		CoverID:     plant.CoverID,
	}
}

func toPlant(row *plantRow) *biz.Plant {
	return &biz.Plant{
		ID:          row.ID,
		UserID:      row.UserID,
		LocationID:  row.LocationID,
		SpeciesID:   row.SpeciesID,
		SpeciesName: row.SpeciesName,
		CustomName:  row.CustomName,
		SortName:    row.SortName,
		Description: row.Description,
		Condition:   row.Condition,
		Public:      row.Public,
		WaterFreq:   row.WaterFreq,
		WaterLast:   row.WaterLast,
		WaterNext:   row.WaterNext,
		FertFreq:    row.FertFreq,
		FertLast:    row.FertLast,
		FertNext:    row.FertNext,
		PotSize:     row.PotSize,
		PotType:     row.PotType,
		Soil:        row.Soil,
		CoverID:     row.CoverID,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
