package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leafcare/terrarium-backend/internal/auth"
	"github.com/leafcare/terrarium-backend/internal/guard"
	"github.com/leafcare/terrarium-backend/internal/media"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
)

type fakeLocationRepo struct {
	byID   map[uint]*Location
	nextID uint
}

func newFakeLocationRepo() *fakeLocationRepo {
	return &fakeLocationRepo{byID: make(map[uint]*Location), nextID: 1}
}

func (f *fakeLocationRepo) Create(_ context.Context, l *Location) error {
	l.ID = f.nextID
	f.nextID++
	f.byID[l.ID] = l
	return nil
}

func (f *fakeLocationRepo) GetByID(_ context.Context, id uint) (*Location, error) {
	if l, ok := f.byID[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, apperrors.New(apperrors.ErrLocationNotFound)
}

func (f *fakeLocationRepo) ListByOwner(_ context.Context, ownerID uint) ([]*Location, error) {
	var out []*Location
	for _, l := range f.byID {
		if l.UserID == ownerID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLocationRepo) Update(_ context.Context, l *Location) error {
	current, ok := f.byID[l.ID]
	if !ok {
		return apperrors.New(apperrors.ErrLocationNotFound)
	}
	current.Name = l.Name
	current.Light = l.Light
	current.Public = l.Public
	return nil
}

func (f *fakeLocationRepo) Delete(_ context.Context, id uint) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeLocationRepo) SetPicture(_ context.Context, id uint, file *media.LocalFile) (*uint, error) {
	l, ok := f.byID[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrLocationNotFound)
	}
	old := l.HashID
	hashID := uint(100)
	l.HashID = &hashID
	l.Pictures = file.Paths
	return old, nil
}

func (f *fakeLocationRepo) ClearPicture(_ context.Context, id uint) (*uint, error) {
	l, ok := f.byID[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrLocationNotFound)
	}
	old := l.HashID
	l.HashID = nil
	l.Pictures = nil
	return old, nil
}

// guardRepo adapts the fake location repo for ownership checks
type guardRepo struct {
	locations *fakeLocationRepo
}

func (g *guardRepo) Get(ctx context.Context, kind guard.Kind, id uint) (*guard.Resource, error) {
	if kind != guard.KindLocation {
		return nil, guard.NotFoundError(kind)
	}
	l, err := g.locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &guard.Resource{OwnerID: l.UserID, Public: l.Public}, nil
}

type fakePlantRemover struct {
	removedAt []uint
	count     int64
}

func (f *fakePlantRemover) RemoveAllAtLocation(_ context.Context, locationID uint, _ uint) (int64, error) {
	f.removedAt = append(f.removedAt, locationID)
	return f.count, nil
}

type fakeStore struct {
	released []uint
	ingested []string
}

func (f *fakeStore) Release(_ context.Context, hashID uint) error {
	f.released = append(f.released, hashID)
	return nil
}

func (f *fakeStore) Ingest(_ context.Context, tempPath string) (*media.LocalFile, error) {
	f.ingested = append(f.ingested, tempPath)
	return &media.LocalFile{Hash: "abc", Paths: media.MapJSON{"full": "ab/c.jpg"}}, nil
}

func newTestLocationUseCase() (*LocationUseCase, *fakeLocationRepo, *fakePlantRemover, *fakeStore) {
	repo := newFakeLocationRepo()
	plants := &fakePlantRemover{count: 2}
	store := &fakeStore{}
	uc := NewLocationUseCase(repo, plants, store, guard.New(&guardRepo{locations: repo}))
	return uc, repo, plants, store
}

func TestLocationCreate(t *testing.T) {
	uc, _, _, _ := newTestLocationUseCase()
	ctx := context.Background()

	location, err := uc.Create(ctx, &Location{UserID: 1, Name: " Balcony ", Light: "FULLSUN"})
	require.NoError(t, err)
	assert.Equal(t, "Balcony", location.Name)
	assert.NotZero(t, location.ID)
}

func TestLocationCreateInvalidLight(t *testing.T) {
	uc, _, _, _ := newTestLocationUseCase()

	_, err := uc.Create(context.Background(), &Location{UserID: 1, Name: "Balcony", Light: "DARKNESS"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrLocationInvalidLight, apperrors.ExtractCode(err))

	// the allowed values travel with the error
	data := apperrors.ExtractData(err)
	require.NotNil(t, data)
	assert.Equal(t, "light", data.Field)
	assert.Equal(t, LightValues, data.Values)
}

func TestLocationModifyForbidden(t *testing.T) {
	uc, _, _, _ := newTestLocationUseCase()
	ctx := context.Background()

	location, err := uc.Create(ctx, &Location{UserID: 1, Name: "Balcony", Light: "FULLSUN"})
	require.NoError(t, err)

	stranger := auth.Requester{UserID: 2, Role: auth.RoleUser, SignedIn: true}
	_, err = uc.Modify(ctx, stranger, &Location{ID: location.ID, Name: "Mine now", Light: "SHADE"})
	assert.Equal(t, apperrors.ErrForbidden, apperrors.ExtractCode(err))
}

func TestLocationRemoveCascades(t *testing.T) {
	uc, repo, plants, store := newTestLocationUseCase()
	ctx := context.Background()

	location, err := uc.Create(ctx, &Location{UserID: 1, Name: "Shelf", Light: "SHADE"})
	require.NoError(t, err)

	hashID := uint(7)
	repo.byID[location.ID].HashID = &hashID

	owner := auth.Requester{UserID: 1, Role: auth.RoleUser, SignedIn: true}
	require.NoError(t, uc.Remove(ctx, owner, location.ID))

	// plants at the location were removed, the picture hash released
	assert.Equal(t, []uint{location.ID}, plants.removedAt)
	assert.Equal(t, []uint{hashID}, store.released)

	_, err = uc.Get(ctx, owner, location.ID)
	assert.Equal(t, apperrors.ErrLocationNotFound, apperrors.ExtractCode(err))
}

func TestLocationSetPictureReleasesOld(t *testing.T) {
	uc, repo, _, store := newTestLocationUseCase()
	ctx := context.Background()

	location, err := uc.Create(ctx, &Location{UserID: 1, Name: "Desk", Light: "PARTIALSUN"})
	require.NoError(t, err)

	old := uint(3)
	repo.byID[location.ID].HashID = &old

	owner := auth.Requester{UserID: 1, Role: auth.RoleUser, SignedIn: true}
	updated, err := uc.SetPicture(ctx, owner, location.ID, "/tmp/upload")
	require.NoError(t, err)

	assert.Equal(t, []string{"/tmp/upload"}, store.ingested)
	assert.Equal(t, []uint{old}, store.released)
	assert.NotNil(t, updated.Pictures)
}
