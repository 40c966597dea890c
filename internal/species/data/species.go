package data

import (
	"context"
	"time"

	"github.com/leafcare/terrarium-backend/internal/pkg/database"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
	"github.com/leafcare/terrarium-backend/internal/species/biz"
)

// SpeciesPO represents the database model
type SpeciesPO struct {
	ID         uint    `gorm:"primarykey"`
	Family     *string `gorm:"size:100"`
	Name       string  `gorm:"size:200;not null;uniqueIndex:idx_species_name"`
	CommonName *string `gorm:"size:200;index"`
	Light      *string `gorm:"size:20"`
	WaterFreq  *int
	FertFreq   *int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (SpeciesPO) TableName() string {
	return "species"
}

// SpeciesRepo implements biz.SpeciesRepo
type SpeciesRepo struct {
	db *database.DB
}

func NewSpeciesRepo(db *database.DB) biz.SpeciesRepo {
	return &SpeciesRepo{db: db}
}

func (r *SpeciesRepo) Create(ctx context.Context, species *biz.Species) error {
	po := toPO(species)

	if err := r.db.GetDB().WithContext(ctx).Create(po).Error; err != nil {
		if database.IsDuplicateKeyError(err) {
			return apperrors.New(apperrors.ErrSpeciesExists).WithField("name")
		}
		return err
	}

	species.ID = po.ID
	return nil
}

func (r *SpeciesRepo) GetByID(ctx context.Context, id uint) (*biz.Species, error) {
	var po SpeciesPO
	err := r.db.GetDB().WithContext(ctx).First(&po, id).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrSpeciesNotFound)
		}
		return nil, err
	}

	return toSpecies(&po), nil
}

func (r *SpeciesRepo) Search(ctx context.Context, name string, limit int) ([]*biz.Species, error) {
	var pos []SpeciesPO

	pattern := "%" + name + "%"
	err := r.db.GetDB().WithContext(ctx).
		Where("name ILIKE ? OR common_name ILIKE ?", pattern, pattern).
		Order("name ASC").
		Limit(database.ClampLimit(limit)).
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	species := make([]*biz.Species, len(pos))
	for i := range pos {
		species[i] = toSpecies(&pos[i])
	}

	return species, nil
}

func (r *SpeciesRepo) Update(ctx context.Context, species *biz.Species) error {
	po := toPO(species)

	err := r.db.GetDB().WithContext(ctx).
		Model(&SpeciesPO{}).
		Where("id = ?", species.ID).
		Select("family", "name", "common_name", "light", "water_freq", "fert_freq").
		Updates(po).Error
	if err != nil {
		if database.IsDuplicateKeyError(err) {
			return apperrors.New(apperrors.ErrSpeciesExists).WithField("name")
		}
		return err
	}

	return nil
}

func toPO(species *biz.Species) *SpeciesPO {
	return &SpeciesPO{
		ID:         species.ID,
		Family:     species.Family,
		Name:       species.Name,
		CommonName: species.CommonName,
		Light:      species.Light,
		WaterFreq:  species.WaterFreq,
		FertFreq:   species.FertFreq,
	}
}

func toSpecies(po *SpeciesPO) *biz.Species {
	return &biz.Species{
		ID:         po.ID,
		Family:     po.Family,
		Name:       po.Name,
		CommonName: po.CommonName,
		Light:      po.Light,
		WaterFreq:  po.WaterFreq,
		FertFreq:   po.FertFreq,
	}
}
