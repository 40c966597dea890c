package biz

import (
	"context"
	"strings"
	"time"

	"github.com/leafcare/terrarium-backend/internal/auth"
	"github.com/leafcare/terrarium-backend/internal/guard"
	"github.com/leafcare/terrarium-backend/internal/media"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
)

// Light exposure values a location can have
var LightValues = []string{"FULLSUN", "PARTIALSUN", "SHADE"}

// Location is a place where plants live: a windowsill, a balcony, a
// greenhouse shelf.
type Location struct {
	ID         uint
	UserID     uint
	Name       string
	Light      string
	Public     bool
	HashID     *uint
	Pictures   media.MapJSON
	PlantCount int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// LocationRepo defines the interface for location data operations
type LocationRepo interface {
	Create(ctx context.Context, location *Location) error
	GetByID(ctx context.Context, id uint) (*Location, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]*Location, error)
	Update(ctx context.Context, location *Location) error
	Delete(ctx context.Context, id uint) error
	SetPicture(ctx context.Context, id uint, file *media.LocalFile) (oldHashID *uint, err error)
	ClearPicture(ctx context.Context, id uint) (oldHashID *uint, err error)
}

// PlantRemover deletes every plant at a location, photos and hash
// references included. Implemented by the plant use case.
type PlantRemover interface {
	RemoveAllAtLocation(ctx context.Context, locationID uint, ownerID uint) (int64, error)
}

// MediaReleaser drops a content-hash reference. Implemented by the
// media store.
type MediaReleaser interface {
	Release(ctx context.Context, hashID uint) error
	Ingest(ctx context.Context, tempPath string) (*media.LocalFile, error)
}

// LocationUseCase contains business logic for location operations
type LocationUseCase struct {
	repo   LocationRepo
	plants PlantRemover
	store  MediaReleaser
	guard  *guard.Guard
}

func NewLocationUseCase(repo LocationRepo, plants PlantRemover, store MediaReleaser, g *guard.Guard) *LocationUseCase {
	return &LocationUseCase{
		repo:   repo,
		plants: plants,
		store:  store,
		guard:  g,
	}
}

func validateLight(light string) error {
	for _, v := range LightValues {
		if light == v {
			return nil
		}
	}
	return apperrors.New(apperrors.ErrLocationInvalidLight).
		WithField("light").
		WithValues(LightValues...)
}

// Create adds a location for the owner
func (uc *LocationUseCase) Create(ctx context.Context, location *Location) (*Location, error) {
	location.Name = strings.TrimSpace(location.Name)
	if location.Name == "" {
		return nil, apperrors.NewValidationError("name")
	}
	if err := validateLight(location.Light); err != nil {
		return nil, err
	}

	if err := uc.repo.Create(ctx, location); err != nil {
		return nil, err
	}

	return location, nil
}

// Get loads a location visible to the requester
func (uc *LocationUseCase) Get(ctx context.Context, req auth.Requester, id uint) (*Location, error) {
	if err := uc.guard.CanRead(ctx, req, guard.KindLocation, id); err != nil {
		return nil, err
	}
	return uc.repo.GetByID(ctx, id)
}

// List returns the requester's locations with plant counts
func (uc *LocationUseCase) List(ctx context.Context, ownerID uint) ([]*Location, error) {
	return uc.repo.ListByOwner(ctx, ownerID)
}

// Modify updates name, light and visibility of an owned location
func (uc *LocationUseCase) Modify(ctx context.Context, req auth.Requester, location *Location) (*Location, error) {
	if err := uc.guard.CanWrite(ctx, req, guard.KindLocation, location.ID); err != nil {
		return nil, err
	}

	location.Name = strings.TrimSpace(location.Name)
	if location.Name == "" {
		return nil, apperrors.NewValidationError("name")
	}
	if err := validateLight(location.Light); err != nil {
		return nil, err
	}

	if err := uc.repo.Update(ctx, location); err != nil {
		return nil, err
	}

	return uc.repo.GetByID(ctx, location.ID)
}

// Remove deletes an owned location together with every plant in it
func (uc *LocationUseCase) Remove(ctx context.Context, req auth.Requester, id uint) error {
	if err := uc.guard.CanWrite(ctx, req, guard.KindLocation, id); err != nil {
		return err
	}

	location, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := uc.plants.RemoveAllAtLocation(ctx, id, req.UserID); err != nil {
		return err
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}

	if location.HashID != nil {
		// row is gone; a failed release leaves an orphaned file, not a
		// broken record
		_ = uc.store.Release(ctx, *location.HashID)
	}

	return nil
}

// SetPicture replaces the location's picture with an uploaded image
func (uc *LocationUseCase) SetPicture(ctx context.Context, req auth.Requester, id uint, tempPath string) (*Location, error) {
	if err := uc.guard.CanWrite(ctx, req, guard.KindLocation, id); err != nil {
		return nil, err
	}

	file, err := uc.store.Ingest(ctx, tempPath)
	if err != nil {
		return nil, err
	}

	oldHashID, err := uc.repo.SetPicture(ctx, id, file)
	if err != nil {
		return nil, err
	}

	if oldHashID != nil {
		_ = uc.store.Release(ctx, *oldHashID)
	}

	return uc.repo.GetByID(ctx, id)
}

// ClearPicture removes the location's picture
func (uc *LocationUseCase) ClearPicture(ctx context.Context, req auth.Requester, id uint) error {
	if err := uc.guard.CanWrite(ctx, req, guard.KindLocation, id); err != nil {
		return err
	}

	oldHashID, err := uc.repo.ClearPicture(ctx, id)
	if err != nil {
		return err
	}

	if oldHashID != nil {
		_ = uc.store.Release(ctx, *oldHashID)
	}

	return nil
}
