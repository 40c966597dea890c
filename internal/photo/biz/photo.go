package biz

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/leafcare/terrarium-backend/internal/auth"
	"github.com/leafcare/terrarium-backend/internal/guard"
	"github.com/leafcare/terrarium-backend/internal/media"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
)

// Photo is one image of a plant, pointing at a shared content hash
type Photo struct {
	ID          uint
	UserID      uint
	PlantID     uint
	HashID      uint
	Description *string
	Public      bool
	TakenAt     time.Time
	Images      media.MapJSON
	WebP        media.MapJSON
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreatePhotos describes a batch upload: shared metadata applied to
// every uploaded file.
type CreatePhotos struct {
	PlantID     uint
	Description *string
	Public      bool
	TakenAt     *time.Time
}

// UpdatePhoto is the typed patch for a photo record. The image itself
// is immutable; re-uploading means a new photo.
type UpdatePhoto struct {
	Description *string
	Public      *bool
	TakenAt     *time.Time
}

// Navigation points at the neighbouring photos of the same plant
type Navigation struct {
	PrevID *uint
	NextID *uint
}

// PhotoRepo defines the interface for photo data operations
type PhotoRepo interface {
	CreateBatch(ctx context.Context, photos []*Photo, files []*media.LocalFile) error
	GetByID(ctx context.Context, id uint) (*Photo, error)
	ListByPlant(ctx context.Context, plantID uint, publicOnly bool) ([]*Photo, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint, ownerID uint) (hashID uint, deleted bool, err error)
	Navigation(ctx context.Context, photo *Photo, publicOnly bool) (*Navigation, error)
	HashIDsForPlant(ctx context.Context, plantID uint, ownerID uint) ([]uint, error)
	DeleteAllForPlant(ctx context.Context, plantID uint, ownerID uint) error
}

// MediaStore is the slice of the content store the photo module needs
type MediaStore interface {
	Ingest(ctx context.Context, tempPath string) (*media.LocalFile, error)
	Release(ctx context.Context, hashID uint) error
	Discard(file *media.LocalFile)
	RemoveTemp(path string)
}

// PhotoUseCase contains business logic for photo operations
type PhotoUseCase struct {
	repo   PhotoRepo
	store  MediaStore
	guard  *guard.Guard
	logger *logger.Logger
}

func NewPhotoUseCase(repo PhotoRepo, store MediaStore, g *guard.Guard, log *logger.Logger) *PhotoUseCase {
	return &PhotoUseCase{
		repo:   repo,
		store:  store,
		guard:  g,
		logger: log,
	}
}

// Create ingests every uploaded file and records the batch in a single
// transaction. If any file fails to ingest, nothing is recorded:
// derivatives written for new hashes are removed and the remaining temp
// files cleaned up.
func (uc *PhotoUseCase) Create(ctx context.Context, req auth.Requester, meta *CreatePhotos, tempPaths []string) ([]*Photo, error) {
	if len(tempPaths) == 0 {
		return nil, apperrors.New(apperrors.ErrUploadMissing)
	}

	if err := uc.guard.CheckRelationship(ctx, guard.KindPlant, meta.PlantID, req.UserID); err != nil {
		for _, path := range tempPaths {
			uc.store.RemoveTemp(path)
		}
		return nil, err
	}

	files := make([]*media.LocalFile, 0, len(tempPaths))
	for i, path := range tempPaths {
		file, err := uc.store.Ingest(ctx, path)
		if err != nil {
			for _, f := range files {
				uc.store.Discard(f)
			}
			for _, rest := range tempPaths[i+1:] {
				uc.store.RemoveTemp(rest)
			}
			return nil, err
		}
		files = append(files, file)
	}

	takenAt := time.Now()
	if meta.TakenAt != nil {
		takenAt = *meta.TakenAt
	}

	photos := make([]*Photo, len(files))
	for i := range files {
		photos[i] = &Photo{
			UserID:      req.UserID,
			PlantID:     meta.PlantID,
			Description: meta.Description,
			Public:      meta.Public,
			TakenAt:     takenAt,
		}
	}

	if err := uc.repo.CreateBatch(ctx, photos, files); err != nil {
		for _, f := range files {
			uc.store.Discard(f)
		}
		return nil, err
	}

	return photos, nil
}

// Get loads a photo visible to the requester
func (uc *PhotoUseCase) Get(ctx context.Context, req auth.Requester, id uint) (*Photo, error) {
	if err := uc.guard.CanRead(ctx, req, guard.KindPhoto, id); err != nil {
		return nil, err
	}
	return uc.repo.GetByID(ctx, id)
}

// ListByPlant returns a plant's photos. Non-owners see only the public
// ones.
func (uc *PhotoUseCase) ListByPlant(ctx context.Context, req auth.Requester, plantID uint) ([]*Photo, error) {
	if err := uc.guard.CanRead(ctx, req, guard.KindPlant, plantID); err != nil {
		return nil, err
	}

	plant, err := uc.guard.Resource(ctx, guard.KindPlant, plantID)
	if err != nil {
		return nil, err
	}

	publicOnly := plant.OwnerID != req.UserID && !req.IsAdmin()
	return uc.repo.ListByPlant(ctx, plantID, publicOnly)
}

// Modify updates a photo's metadata, never the image itself
func (uc *PhotoUseCase) Modify(ctx context.Context, req auth.Requester, id uint, patch *UpdatePhoto) (*Photo, error) {
	if err := uc.guard.CanWrite(ctx, req, guard.KindPhoto, id); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Public != nil {
		fields["public"] = *patch.Public
	}
	if patch.TakenAt != nil {
		fields["taken_at"] = *patch.TakenAt
	}

	if len(fields) > 0 {
		if err := uc.repo.Update(ctx, id, fields); err != nil {
			return nil, err
		}
	}

	return uc.repo.GetByID(ctx, id)
}

// Remove deletes an owned photo and drops its hash reference. The
// release happens after the row is gone; a failed release leaves an
// orphaned file at worst and is logged, not surfaced.
func (uc *PhotoUseCase) Remove(ctx context.Context, req auth.Requester, id uint) error {
	hashID, deleted, err := uc.repo.Delete(ctx, id, req.UserID)
	if err != nil {
		return err
	}
	if !deleted {
		// missing and not-yours are indistinguishable on purpose
		return apperrors.New(apperrors.ErrPhotoNotFound)
	}

	if err := uc.store.Release(ctx, hashID); err != nil {
		uc.logger.Error("failed to release photo hash",
			zap.Uint("photo_id", id),
			zap.Uint("hash_id", hashID),
			zap.Error(err),
		)
	}

	return nil
}

// Navigation returns the previous and next photo of the same plant in
// (taken_at, id) order. Non-owners navigate only across public photos.
func (uc *PhotoUseCase) Navigation(ctx context.Context, req auth.Requester, id uint) (*Navigation, error) {
	if err := uc.guard.CanRead(ctx, req, guard.KindPhoto, id); err != nil {
		return nil, err
	}

	photo, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	publicOnly := photo.UserID != req.UserID && !req.IsAdmin()
	return uc.repo.Navigation(ctx, photo, publicOnly)
}

// RemoveAllForPlant deletes every photo of a plant the owner holds and
// releases their hashes. Used by plant deletion.
func (uc *PhotoUseCase) RemoveAllForPlant(ctx context.Context, plantID uint, ownerID uint) error {
	hashIDs, err := uc.repo.HashIDsForPlant(ctx, plantID, ownerID)
	if err != nil {
		return err
	}

	if err := uc.repo.DeleteAllForPlant(ctx, plantID, ownerID); err != nil {
		return err
	}

	for _, hashID := range hashIDs {
		if err := uc.store.Release(ctx, hashID); err != nil {
			uc.logger.Error("failed to release photo hash",
				zap.Uint("plant_id", plantID),
				zap.Uint("hash_id", hashID),
				zap.Error(err),
			)
		}
	}

	return nil
}
