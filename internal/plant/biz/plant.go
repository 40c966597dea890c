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

// Condition values a plant can be in
var ConditionValues = []string{"BAD", "POOR", "GOOD", "GREAT", "EXCELLENT"}

// Plant is a tracked specimen in someone's collection
type Plant struct {
	ID          uint
	UserID      uint
	LocationID  uint
	SpeciesID   *uint
	SpeciesName *string
	CustomName  *string
	SortName    *string
	Description *string
	Condition   *string
	Public      bool

	WaterFreq *int
	WaterLast *time.Time
	WaterNext *time.Time
	FertFreq  *int
	FertLast  *time.Time
	FertNext  *time.Time

	PotSize *int
	PotType *string
	Soil    *string
	CoverID *uint

	Cover media.MapJSON

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreatePlant is the typed creation payload
type CreatePlant struct {
	LocationID  uint
	SpeciesID   *uint
	CustomName  *string
	Description *string
	Condition   *string
	Public      bool
	WaterFreq   *int
	WaterLast   *time.Time
	FertFreq    *int
	FertLast    *time.Time
	PotSize     *int
	PotType     *string
	Soil        *string
}

// UpdatePlant is the typed patch payload. A nil pointer leaves the
// field untouched. For clearable fields the zero value clears: species
// id 0 detaches the species, frequency 0 drops the schedule, an empty
// custom name reverts to the species name.
type UpdatePlant struct {
	LocationID  *uint
	SpeciesID   *uint
	CustomName  *string
	Description *string
	Condition   *string
	Public      *bool
	WaterFreq   *int
	WaterLast   *time.Time
	FertFreq    *int
	FertLast    *time.Time
	PotSize     *int
	PotType     *string
	Soil        *string
	CoverID     *uint
}

// ListQuery filters and paginates a plant listing
type ListQuery struct {
	OwnerID    uint
	PublicOnly bool
	LocationID uint
	Cursor     uint
	Limit      int
	SortByName bool
	WithCover  bool
}

// PlantRepo defines the interface for plant data operations
type PlantRepo interface {
	Create(ctx context.Context, plant *Plant) error
	GetByID(ctx context.Context, id uint) (*Plant, error)
	List(ctx context.Context, q ListQuery) ([]*Plant, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	SetDerived(ctx context.Context, id uint, waterNext, fertNext *time.Time, sortName *string) error
	Delete(ctx context.Context, id uint, ownerID uint) (bool, error)
	IDsAtLocation(ctx context.Context, locationID uint, ownerID uint) ([]uint, error)
	MoveToLocation(ctx context.Context, ids []uint, ownerID uint, locationID uint) (int64, error)
	Due(ctx context.Context, ownerID uint, now time.Time) ([]*Plant, error)
	AttachCover(ctx context.Context, plant *Plant) error
	SpeciesName(ctx context.Context, speciesID uint) (*string, error)
}

// PhotoRemover deletes every photo of a plant, releasing their content
// hashes. Implemented by the photo use case.
type PhotoRemover interface {
	RemoveAllForPlant(ctx context.Context, plantID uint, ownerID uint) error
}

// PlantUseCase contains business logic for plant operations
type PlantUseCase struct {
	repo    PlantRepo
	photos  PhotoRemover
	guard   *guard.Guard
	massCap int
}

func NewPlantUseCase(repo PlantRepo, photos PhotoRemover, g *guard.Guard, massCap int) *PlantUseCase {
	return &PlantUseCase{
		repo:    repo,
		photos:  photos,
		guard:   g,
		massCap: massCap,
	}
}

// NextDate computes when a care action is next due: the last time it
// was done plus the frequency in calendar days. Pure.
func NextDate(last time.Time, freqDays int) time.Time {
	return last.AddDate(0, 0, freqDays)
}

func nextOrNil(last *time.Time, freq *int) *time.Time {
	if last == nil || freq == nil || *freq <= 0 {
		return nil
	}
	next := NextDate(*last, *freq)
	return &next
}

func validateCondition(condition *string) error {
	if condition == nil {
		return nil
	}
	for _, v := range ConditionValues {
		if *condition == v {
			return nil
		}
	}
	return apperrors.New(apperrors.ErrPlantInvalidCondition).
		WithField("condition").
		WithValues(ConditionValues...)
}

// sortName derives the listing sort key: the custom name when present,
// otherwise the species name, otherwise nothing.
func sortName(customName *string, speciesName *string) *string {
	if customName != nil && strings.TrimSpace(*customName) != "" {
		name := strings.ToLower(strings.TrimSpace(*customName))
		return &name
	}
	if speciesName != nil && *speciesName != "" {
		name := strings.ToLower(*speciesName)
		return &name
	}
	return nil
}

// Create adds a plant to one of the owner's locations
func (uc *PlantUseCase) Create(ctx context.Context, ownerID uint, req *CreatePlant) (*Plant, error) {
	if err := uc.guard.CheckRelationship(ctx, guard.KindLocation, req.LocationID, ownerID); err != nil {
		return nil, err
	}
	if err := validateCondition(req.Condition); err != nil {
		return nil, err
	}

	var speciesName *string
	if req.SpeciesID != nil {
		name, err := uc.repo.SpeciesName(ctx, *req.SpeciesID)
		if err != nil {
			return nil, err
		}
		speciesName = name
	}

	plant := &Plant{
		UserID:      ownerID,
		LocationID:  req.LocationID,
		SpeciesID:   req.SpeciesID,
		CustomName:  req.CustomName,
		SortName:    sortName(req.CustomName, speciesName),
		Description: req.Description,
		Condition:   req.Condition,
		Public:      req.Public,
		WaterFreq:   req.WaterFreq,
		WaterLast:   req.WaterLast,
		WaterNext:   nextOrNil(req.WaterLast, req.WaterFreq),
		FertFreq:    req.FertFreq,
		FertLast:    req.FertLast,
		FertNext:    nextOrNil(req.FertLast, req.FertFreq),
		PotSize:     req.PotSize,
		PotType:     req.PotType,
		Soil:        req.Soil,
	}

	if err := uc.repo.Create(ctx, plant); err != nil {
		return nil, err
	}

	return plant, nil
}

// Get loads a plant visible to the requester
func (uc *PlantUseCase) Get(ctx context.Context, req auth.Requester, id uint, withCover bool) (*Plant, error) {
	if err := uc.guard.CanRead(ctx, req, guard.KindPlant, id); err != nil {
		return nil, err
	}

	plant, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if withCover {
		if err := uc.repo.AttachCover(ctx, plant); err != nil {
			return nil, err
		}
	}

	return plant, nil
}

// List returns plants belonging to ownerID. Requesters other than the
// owner see only the public ones.
func (uc *PlantUseCase) List(ctx context.Context, req auth.Requester, q ListQuery) ([]*Plant, error) {
	if q.OwnerID != req.UserID && !req.IsAdmin() {
		q.PublicOnly = true
	}

	if q.LocationID != 0 && !q.PublicOnly {
		if err := uc.guard.CheckRelationship(ctx, guard.KindLocation, q.LocationID, q.OwnerID); err != nil {
			return nil, err
		}
	}

	plants, err := uc.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}

	if q.WithCover {
		for _, plant := range plants {
			if err := uc.repo.AttachCover(ctx, plant); err != nil {
				return nil, err
			}
		}
	}

	return plants, nil
}

// Modify applies a patch to an owned plant. The row is re-read after
// the patch and the care schedule recomputed from the merged state, so
// a partial update can never leave a due date inconsistent with its
// inputs.
func (uc *PlantUseCase) Modify(ctx context.Context, req auth.Requester, id uint, patch *UpdatePlant) (*Plant, error) {
	if err := uc.guard.CanWrite(ctx, req, guard.KindPlant, id); err != nil {
		return nil, err
	}
	if err := validateCondition(patch.Condition); err != nil {
		return nil, err
	}
	if patch.LocationID != nil {
		if err := uc.guard.CheckRelationship(ctx, guard.KindLocation, *patch.LocationID, req.UserID); err != nil {
			return nil, err
		}
	}
	if patch.CoverID != nil && *patch.CoverID != 0 {
		if err := uc.guard.CheckRelationship(ctx, guard.KindPhoto, *patch.CoverID, req.UserID); err != nil {
			return nil, err
		}
	}

	fields, err := uc.patchFields(ctx, patch)
	if err != nil {
		return nil, err
	}

	if len(fields) > 0 {
		if err := uc.repo.Update(ctx, id, fields); err != nil {
			return nil, err
		}
	}

	// recompute from what is actually stored now
	merged, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	waterNext := nextOrNil(merged.WaterLast, merged.WaterFreq)
	fertNext := nextOrNil(merged.FertLast, merged.FertFreq)
	name := sortName(merged.CustomName, merged.SpeciesName)

	if err := uc.repo.SetDerived(ctx, id, waterNext, fertNext, name); err != nil {
		return nil, err
	}

	merged.WaterNext = waterNext
	merged.FertNext = fertNext
	merged.SortName = name
	return merged, nil
}

// patchFields turns a typed patch into column assignments, resolving
// the sort name when names change.
func (uc *PlantUseCase) patchFields(ctx context.Context, patch *UpdatePlant) (map[string]interface{}, error) {
	fields := make(map[string]interface{})

	if patch.LocationID != nil {
		fields["location_id"] = *patch.LocationID
	}
	if patch.Description != nil {
		fields["description"] = nullableString(patch.Description)
	}
	if patch.Condition != nil {
		fields["condition"] = nullableString(patch.Condition)
	}
	if patch.Public != nil {
		fields["public"] = *patch.Public
	}
	if patch.WaterFreq != nil {
		fields["water_freq"] = nullableInt(patch.WaterFreq)
	}
	if patch.WaterLast != nil {
		fields["water_last"] = *patch.WaterLast
	}
	if patch.FertFreq != nil {
		fields["fert_freq"] = nullableInt(patch.FertFreq)
	}
	if patch.FertLast != nil {
		fields["fert_last"] = *patch.FertLast
	}
	if patch.PotSize != nil {
		fields["pot_size"] = nullableInt(patch.PotSize)
	}
	if patch.PotType != nil {
		fields["pot_type"] = nullableString(patch.PotType)
	}
	if patch.Soil != nil {
		fields["soil"] = nullableString(patch.Soil)
	}
	if patch.CoverID != nil {
		if *patch.CoverID == 0 {
			fields["cover_id"] = nil
		} else {
			fields["cover_id"] = *patch.CoverID
		}
	}

	if patch.SpeciesID != nil {
		if *patch.SpeciesID == 0 {
			fields["species_id"] = nil
		} else {
			// existence check; the name itself is re-read post-patch
			if _, err := uc.repo.SpeciesName(ctx, *patch.SpeciesID); err != nil {
				return nil, err
			}
			fields["species_id"] = *patch.SpeciesID
		}
	}
	if patch.CustomName != nil {
		fields["custom_name"] = nullableString(patch.CustomName)
	}

	return fields, nil
}

func nullableString(s *string) interface{} {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return strings.TrimSpace(*s)
}

func nullableInt(i *int) interface{} {
	if i == nil || *i <= 0 {
		return nil
	}
	return *i
}

// Remove deletes an owned plant together with its photos
func (uc *PlantUseCase) Remove(ctx context.Context, req auth.Requester, id uint) error {
	if err := uc.guard.CanWrite(ctx, req, guard.KindPlant, id); err != nil {
		return err
	}

	if err := uc.photos.RemoveAllForPlant(ctx, id, req.UserID); err != nil {
		return err
	}

	deleted, err := uc.repo.Delete(ctx, id, req.UserID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.New(apperrors.ErrPlantNotFound)
	}

	return nil
}

// MassDelete removes the owner's plants among ids, photos included.
// Ids the owner does not hold are skipped silently; the count of
// actually deleted plants is returned. Zero deletions is an error.
func (uc *PlantUseCase) MassDelete(ctx context.Context, ownerID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, apperrors.NewValidationError("ids")
	}
	if len(ids) > uc.massCap {
		return 0, apperrors.New(apperrors.ErrPlantMaxExceeded).WithField("ids")
	}

	var count int64
	for _, id := range ids {
		if err := uc.photos.RemoveAllForPlant(ctx, id, ownerID); err != nil {
			return count, err
		}

		deleted, err := uc.repo.Delete(ctx, id, ownerID)
		if err != nil {
			return count, err
		}
		if deleted {
			count++
		}
	}

	if count == 0 {
		return 0, apperrors.New(apperrors.ErrPlantNotFound)
	}

	return count, nil
}

// MassMove relocates the owner's plants among ids to another of their
// locations. Same skip-and-count semantics as MassDelete.
func (uc *PlantUseCase) MassMove(ctx context.Context, ownerID uint, ids []uint, locationID uint) (int64, error) {
	if len(ids) == 0 {
		return 0, apperrors.NewValidationError("ids")
	}
	if len(ids) > uc.massCap {
		return 0, apperrors.New(apperrors.ErrPlantMaxExceeded).WithField("ids")
	}

	if err := uc.guard.CheckRelationship(ctx, guard.KindLocation, locationID, ownerID); err != nil {
		return 0, err
	}

	count, err := uc.repo.MoveToLocation(ctx, ids, ownerID, locationID)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, apperrors.New(apperrors.ErrPlantNotFound)
	}

	return count, nil
}

// RemoveAllAtLocation deletes every plant the owner keeps at the
// location, photos included. Used when a location is removed.
func (uc *PlantUseCase) RemoveAllAtLocation(ctx context.Context, locationID uint, ownerID uint) (int64, error) {
	ids, err := uc.repo.IDsAtLocation(ctx, locationID, ownerID)
	if err != nil {
		return 0, err
	}

	var count int64
	for _, id := range ids {
		if err := uc.photos.RemoveAllForPlant(ctx, id, ownerID); err != nil {
			return count, err
		}

		deleted, err := uc.repo.Delete(ctx, id, ownerID)
		if err != nil {
			return count, err
		}
		if deleted {
			count++
		}
	}

	return count, nil
}

// Due lists the requester's plants with at least one care action due.
// A date that is not itself due yet is nulled in the returned row, so
// clients can render the due action without inspecting timestamps.
func (uc *PlantUseCase) Due(ctx context.Context, ownerID uint) ([]*Plant, error) {
	now := time.Now()

	plants, err := uc.repo.Due(ctx, ownerID, now)
	if err != nil {
		return nil, err
	}

	for _, plant := range plants {
		if plant.WaterNext != nil && plant.WaterNext.After(now) {
			plant.WaterNext = nil
		}
		if plant.FertNext != nil && plant.FertNext.After(now) {
			plant.FertNext = nil
		}
	}

	return plants, nil
}
