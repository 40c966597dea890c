package biz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leafcare/terrarium-backend/internal/auth"
	"github.com/leafcare/terrarium-backend/internal/guard"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
)

type fakePlantRepo struct {
	plants    map[uint]*Plant
	species   map[uint]string
	locations map[uint]uint // location id -> owner id
	nextID    uint
}

func newFakePlantRepo() *fakePlantRepo {
	return &fakePlantRepo{
		plants:    make(map[uint]*Plant),
		species:   make(map[uint]string),
		locations: make(map[uint]uint),
		nextID:    1,
	}
}

func (f *fakePlantRepo) Create(_ context.Context, p *Plant) error {
	p.ID = f.nextID
	f.nextID++
	f.plants[p.ID] = p
	return nil
}

func (f *fakePlantRepo) GetByID(_ context.Context, id uint) (*Plant, error) {
	p, ok := f.plants[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrPlantNotFound)
	}
	cp := *p
	if p.SpeciesID != nil {
		if name, ok := f.species[*p.SpeciesID]; ok {
			cp.SpeciesName = &name
		}
	}
	return &cp, nil
}

func (f *fakePlantRepo) List(_ context.Context, q ListQuery) ([]*Plant, error) {
	var out []*Plant
	for _, p := range f.plants {
		if p.UserID != q.OwnerID {
			continue
		}
		if q.PublicOnly && !p.Public {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePlantRepo) Update(_ context.Context, id uint, fields map[string]interface{}) error {
	p, ok := f.plants[id]
	if !ok {
		return apperrors.New(apperrors.ErrPlantNotFound)
	}

	for col, v := range fields {
		switch col {
		case "location_id":
			p.LocationID = v.(uint)
		case "custom_name":
			p.CustomName = optString(v)
		case "description":
			p.Description = optString(v)
		case "condition":
			p.Condition = optString(v)
		case "public":
			p.Public = v.(bool)
		case "water_freq":
			p.WaterFreq = optInt(v)
		case "water_last":
			t := v.(time.Time)
			p.WaterLast = &t
		case "fert_freq":
			p.FertFreq = optInt(v)
		case "fert_last":
			t := v.(time.Time)
			p.FertLast = &t
		case "species_id":
			if v == nil {
				p.SpeciesID = nil
			} else {
				id := v.(uint)
				p.SpeciesID = &id
			}
		}
	}
	return nil
}

func optString(v interface{}) *string {
	if v == nil {
		return nil
	}
	s := v.(string)
	return &s
}

func optInt(v interface{}) *int {
	if v == nil {
		return nil
	}
	i := v.(int)
	return &i
}

func (f *fakePlantRepo) SetDerived(_ context.Context, id uint, waterNext, fertNext *time.Time, sortName *string) error {
	p, ok := f.plants[id]
	if !ok {
		return apperrors.New(apperrors.ErrPlantNotFound)
	}
	p.WaterNext = waterNext
	p.FertNext = fertNext
	p.SortName = sortName
	return nil
}

func (f *fakePlantRepo) Delete(_ context.Context, id uint, ownerID uint) (bool, error) {
	p, ok := f.plants[id]
	if !ok || p.UserID != ownerID {
		return false, nil
	}
	delete(f.plants, id)
	return true, nil
}

func (f *fakePlantRepo) IDsAtLocation(_ context.Context, locationID uint, ownerID uint) ([]uint, error) {
	var ids []uint
	for id, p := range f.plants {
		if p.LocationID == locationID && p.UserID == ownerID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakePlantRepo) MoveToLocation(_ context.Context, ids []uint, ownerID uint, locationID uint) (int64, error) {
	var count int64
	for _, id := range ids {
		if p, ok := f.plants[id]; ok && p.UserID == ownerID {
			p.LocationID = locationID
			count++
		}
	}
	return count, nil
}

func (f *fakePlantRepo) Due(_ context.Context, ownerID uint, now time.Time) ([]*Plant, error) {
	var out []*Plant
	for _, p := range f.plants {
		if p.UserID != ownerID {
			continue
		}
		waterDue := p.WaterNext != nil && !p.WaterNext.After(now)
		fertDue := p.FertNext != nil && !p.FertNext.After(now)
		if waterDue || fertDue {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePlantRepo) AttachCover(_ context.Context, _ *Plant) error {
	return nil
}

func (f *fakePlantRepo) SpeciesName(_ context.Context, speciesID uint) (*string, error) {
	if name, ok := f.species[speciesID]; ok {
		return &name, nil
	}
	return nil, apperrors.New(apperrors.ErrSpeciesNotFound)
}

// plantGuardRepo resolves plants and locations against the fake repo
type plantGuardRepo struct {
	repo *fakePlantRepo
}

func (g *plantGuardRepo) Get(_ context.Context, kind guard.Kind, id uint) (*guard.Resource, error) {
	switch kind {
	case guard.KindPlant:
		if p, ok := g.repo.plants[id]; ok {
			return &guard.Resource{OwnerID: p.UserID, Public: p.Public}, nil
		}
	case guard.KindLocation:
		if owner, ok := g.repo.locations[id]; ok {
			return &guard.Resource{OwnerID: owner}, nil
		}
	}
	return nil, guard.NotFoundError(kind)
}

type fakePhotoRemover struct {
	removed []uint
}

func (f *fakePhotoRemover) RemoveAllForPlant(_ context.Context, plantID uint, _ uint) error {
	f.removed = append(f.removed, plantID)
	return nil
}

const massCap = 5

func newTestPlantUseCase() (*PlantUseCase, *fakePlantRepo, *fakePhotoRemover) {
	repo := newFakePlantRepo()
	repo.locations[1] = 10 // owned by user 10
	repo.locations[2] = 10
	repo.locations[3] = 99 // somebody else's
	repo.species[1] = "monstera deliciosa"

	photos := &fakePhotoRemover{}
	uc := NewPlantUseCase(repo, photos, guard.New(&plantGuardRepo{repo: repo}), massCap)
	return uc, repo, photos
}

func owner() auth.Requester {
	return auth.Requester{UserID: 10, Role: auth.RoleUser, SignedIn: true}
}

func TestNextDate(t *testing.T) {
	last := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC), NextDate(last, 7))
	// calendar addition carries across month ends
	assert.Equal(t, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC), NextDate(time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC), 1))
}

func TestPlantCreateComputesSchedule(t *testing.T) {
	uc, _, _ := newTestPlantUseCase()
	ctx := context.Background()

	freq := 7
	last := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	plant, err := uc.Create(ctx, 10, &CreatePlant{
		LocationID: 1,
		WaterFreq:  &freq,
		WaterLast:  &last,
	})
	require.NoError(t, err)

	require.NotNil(t, plant.WaterNext)
	assert.Equal(t, last.AddDate(0, 0, 7), *plant.WaterNext)
	// no fertilizer inputs, no fertilizer due date
	assert.Nil(t, plant.FertNext)
}

func TestPlantCreateSortName(t *testing.T) {
	uc, _, _ := newTestPlantUseCase()
	ctx := context.Background()

	speciesID := uint(1)
	custom := "Momo"

	plant, err := uc.Create(ctx, 10, &CreatePlant{LocationID: 1, SpeciesID: &speciesID, CustomName: &custom})
	require.NoError(t, err)
	require.NotNil(t, plant.SortName)
	assert.Equal(t, "momo", *plant.SortName)

	plant, err = uc.Create(ctx, 10, &CreatePlant{LocationID: 1, SpeciesID: &speciesID})
	require.NoError(t, err)
	require.NotNil(t, plant.SortName)
	assert.Equal(t, "monstera deliciosa", *plant.SortName)

	plant, err = uc.Create(ctx, 10, &CreatePlant{LocationID: 1})
	require.NoError(t, err)
	assert.Nil(t, plant.SortName)
}

func TestPlantCreateChecksLocationOwnership(t *testing.T) {
	uc, _, _ := newTestPlantUseCase()

	_, err := uc.Create(context.Background(), 10, &CreatePlant{LocationID: 3})
	assert.Equal(t, apperrors.ErrForbidden, apperrors.ExtractCode(err))

	_, err = uc.Create(context.Background(), 10, &CreatePlant{LocationID: 404})
	assert.Equal(t, apperrors.ErrLocationNotFound, apperrors.ExtractCode(err))
}

func TestPlantCreateInvalidCondition(t *testing.T) {
	uc, _, _ := newTestPlantUseCase()

	bad := "WILTED"
	_, err := uc.Create(context.Background(), 10, &CreatePlant{LocationID: 1, Condition: &bad})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrPlantInvalidCondition, apperrors.ExtractCode(err))

	data := apperrors.ExtractData(err)
	require.NotNil(t, data)
	assert.Equal(t, ConditionValues, data.Values)
}

func TestPlantModifyRecomputesSchedule(t *testing.T) {
	uc, _, _ := newTestPlantUseCase()
	ctx := context.Background()

	freq := 7
	last := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	plant, err := uc.Create(ctx, 10, &CreatePlant{LocationID: 1, WaterFreq: &freq, WaterLast: &last})
	require.NoError(t, err)

	// changing the frequency shifts the due date off the same last time
	newFreq := 3
	updated, err := uc.Modify(ctx, owner(), plant.ID, &UpdatePlant{WaterFreq: &newFreq})
	require.NoError(t, err)
	require.NotNil(t, updated.WaterNext)
	assert.Equal(t, last.AddDate(0, 0, 3), *updated.WaterNext)

	// clearing the frequency clears the due date
	zero := 0
	updated, err = uc.Modify(ctx, owner(), plant.ID, &UpdatePlant{WaterFreq: &zero})
	require.NoError(t, err)
	assert.Nil(t, updated.WaterNext)
	assert.Nil(t, updated.WaterFreq)
}

func TestPlantModifySortNameFallsBack(t *testing.T) {
	uc, _, _ := newTestPlantUseCase()
	ctx := context.Background()

	speciesID := uint(1)
	custom := "Momo"
	plant, err := uc.Create(ctx, 10, &CreatePlant{LocationID: 1, SpeciesID: &speciesID, CustomName: &custom})
	require.NoError(t, err)

	// dropping the custom name falls back to the species name
	empty := ""
	updated, err := uc.Modify(ctx, owner(), plant.ID, &UpdatePlant{CustomName: &empty})
	require.NoError(t, err)
	require.NotNil(t, updated.SortName)
	assert.Equal(t, "monstera deliciosa", *updated.SortName)
}

func TestPlantModifyForbidden(t *testing.T) {
	uc, _, _ := newTestPlantUseCase()
	ctx := context.Background()

	plant, err := uc.Create(ctx, 10, &CreatePlant{LocationID: 1})
	require.NoError(t, err)

	stranger := auth.Requester{UserID: 99, Role: auth.RoleUser, SignedIn: true}
	name := "mine"
	_, err = uc.Modify(ctx, stranger, plant.ID, &UpdatePlant{CustomName: &name})
	assert.Equal(t, apperrors.ErrForbidden, apperrors.ExtractCode(err))
}

func TestPlantRemoveDeletesPhotos(t *testing.T) {
	uc, _, photos := newTestPlantUseCase()
	ctx := context.Background()

	plant, err := uc.Create(ctx, 10, &CreatePlant{LocationID: 1})
	require.NoError(t, err)

	require.NoError(t, uc.Remove(ctx, owner(), plant.ID))
	assert.Equal(t, []uint{plant.ID}, photos.removed)
}

func TestMassDelete(t *testing.T) {
	uc, repo, _ := newTestPlantUseCase()
	ctx := context.Background()

	var ids []uint
	for i := 0; i < 3; i++ {
		p, err := uc.Create(ctx, 10, &CreatePlant{LocationID: 1})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	// a plant belonging to someone else slips into the request
	repo.plants[100] = &Plant{ID: 100, UserID: 99, LocationID: 3}

	count, err := uc.MassDelete(ctx, 10, append(ids, 100))
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// the foreign plant is untouched
	assert.Contains(t, repo.plants, uint(100))
}

func TestMassDeleteNothingOwned(t *testing.T) {
	uc, repo, _ := newTestPlantUseCase()

	repo.plants[100] = &Plant{ID: 100, UserID: 99, LocationID: 3}

	_, err := uc.MassDelete(context.Background(), 10, []uint{100})
	assert.Equal(t, apperrors.ErrPlantNotFound, apperrors.ExtractCode(err))
}

func TestMassDeleteOverCap(t *testing.T) {
	uc, _, _ := newTestPlantUseCase()

	ids := make([]uint, massCap+1)
	for i := range ids {
		ids[i] = uint(i + 1)
	}

	_, err := uc.MassDelete(context.Background(), 10, ids)
	assert.Equal(t, apperrors.ErrPlantMaxExceeded, apperrors.ExtractCode(err))
}

func TestMassMove(t *testing.T) {
	uc, repo, _ := newTestPlantUseCase()
	ctx := context.Background()

	p1, err := uc.Create(ctx, 10, &CreatePlant{LocationID: 1})
	require.NoError(t, err)
	p2, err := uc.Create(ctx, 10, &CreatePlant{LocationID: 1})
	require.NoError(t, err)

	count, err := uc.MassMove(ctx, 10, []uint{p1.ID, p2.ID}, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, uint(2), repo.plants[p1.ID].LocationID)

	// moving to somebody else's location is rejected outright
	_, err = uc.MassMove(ctx, 10, []uint{p1.ID}, 3)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.ExtractCode(err))
}

func TestDueNullsNotYetDueDates(t *testing.T) {
	uc, repo, _ := newTestPlantUseCase()
	ctx := context.Background()

	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)

	repo.plants[1] = &Plant{ID: 1, UserID: 10, LocationID: 1, WaterNext: &past, FertNext: &future}
	repo.plants[2] = &Plant{ID: 2, UserID: 10, LocationID: 1, WaterNext: &future, FertNext: &future}

	due, err := uc.Due(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	// water is due; the fertilizer date is not yet due and gets nulled
	assert.NotNil(t, due[0].WaterNext)
	assert.Nil(t, due[0].FertNext)

	// the repo row itself keeps its date
	assert.NotNil(t, repo.plants[1].FertNext)
}

func TestRemoveAllAtLocation(t *testing.T) {
	uc, repo, photos := newTestPlantUseCase()
	ctx := context.Background()

	p1, err := uc.Create(ctx, 10, &CreatePlant{LocationID: 1})
	require.NoError(t, err)
	_, err = uc.Create(ctx, 10, &CreatePlant{LocationID: 2})
	require.NoError(t, err)

	count, err := uc.RemoveAllAtLocation(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, []uint{p1.ID}, photos.removed)
	assert.Len(t, repo.plants, 1)
}
