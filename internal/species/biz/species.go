package biz

import (
	"context"
	"strings"

	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
)

// Species is botanical reference data shared by all users. Regular
// users read it; only admins maintain it.
type Species struct {
	ID         uint
	Family     *string
	Name       string
	CommonName *string
	Light      *string
	WaterFreq  *int
	FertFreq   *int
}

// SpeciesRepo defines the interface for species data operations
type SpeciesRepo interface {
	Create(ctx context.Context, species *Species) error
	GetByID(ctx context.Context, id uint) (*Species, error)
	Search(ctx context.Context, name string, limit int) ([]*Species, error)
	Update(ctx context.Context, species *Species) error
}

// SpeciesUseCase contains business logic for species operations
type SpeciesUseCase struct {
	repo SpeciesRepo
}

func NewSpeciesUseCase(repo SpeciesRepo) *SpeciesUseCase {
	return &SpeciesUseCase{repo: repo}
}

const minSearchLength = 3

// Search finds species whose scientific or common name contains the
// query, case-insensitively. Queries shorter than three characters are
// rejected to keep the reference table from being dumped wholesale.
func (uc *SpeciesUseCase) Search(ctx context.Context, name string, limit int) ([]*Species, error) {
	name = strings.TrimSpace(name)
	if len(name) < minSearchLength {
		return nil, apperrors.NewValidationError("name")
	}

	return uc.repo.Search(ctx, name, limit)
}

// FindOne loads a species by id
func (uc *SpeciesUseCase) FindOne(ctx context.Context, id uint) (*Species, error) {
	return uc.repo.GetByID(ctx, id)
}

// Create adds a new species entry. Name is the scientific name and must
// be unique; normalization to lower case happens here so lookups stay
// case-insensitive.
func (uc *SpeciesUseCase) Create(ctx context.Context, species *Species) (*Species, error) {
	species.Name = strings.ToLower(strings.TrimSpace(species.Name))
	if species.Name == "" {
		return nil, apperrors.NewValidationError("name")
	}

	if err := uc.repo.Create(ctx, species); err != nil {
		return nil, err
	}

	return species, nil
}

// Modify updates an existing species entry
func (uc *SpeciesUseCase) Modify(ctx context.Context, species *Species) (*Species, error) {
	current, err := uc.repo.GetByID(ctx, species.ID)
	if err != nil {
		return nil, err
	}

	if species.Name != "" {
		current.Name = strings.ToLower(strings.TrimSpace(species.Name))
	}
	current.Family = species.Family
	current.CommonName = species.CommonName
	current.Light = species.Light
	current.WaterFreq = species.WaterFreq
	current.FertFreq = species.FertFreq

	if err := uc.repo.Update(ctx, current); err != nil {
		return nil, err
	}

	return current, nil
}
