package biz

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
)

type fakeSpeciesRepo struct {
	byID   map[uint]*Species
	nextID uint
}

func newFakeSpeciesRepo() *fakeSpeciesRepo {
	return &fakeSpeciesRepo{byID: make(map[uint]*Species), nextID: 1}
}

func (f *fakeSpeciesRepo) Create(_ context.Context, sp *Species) error {
	for _, existing := range f.byID {
		if existing.Name == sp.Name {
			return apperrors.New(apperrors.ErrSpeciesExists).WithField("name")
		}
	}
	sp.ID = f.nextID
	f.nextID++
	f.byID[sp.ID] = sp
	return nil
}

func (f *fakeSpeciesRepo) GetByID(_ context.Context, id uint) (*Species, error) {
	if sp, ok := f.byID[id]; ok {
		cp := *sp
		return &cp, nil
	}
	return nil, apperrors.New(apperrors.ErrSpeciesNotFound)
}

func (f *fakeSpeciesRepo) Search(_ context.Context, name string, _ int) ([]*Species, error) {
	var out []*Species
	for _, sp := range f.byID {
		if strings.Contains(sp.Name, strings.ToLower(name)) {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (f *fakeSpeciesRepo) Update(_ context.Context, sp *Species) error {
	f.byID[sp.ID] = sp
	return nil
}

func TestSpeciesCreate(t *testing.T) {
	uc := NewSpeciesUseCase(newFakeSpeciesRepo())
	ctx := context.Background()

	sp, err := uc.Create(ctx, &Species{Name: "  Monstera Deliciosa "})
	require.NoError(t, err)
	assert.Equal(t, "monstera deliciosa", sp.Name)
	assert.NotZero(t, sp.ID)

	// duplicate names conflict regardless of case
	_, err = uc.Create(ctx, &Species{Name: "MONSTERA DELICIOSA"})
	assert.Equal(t, apperrors.ErrSpeciesExists, apperrors.ExtractCode(err))

	_, err = uc.Create(ctx, &Species{Name: "   "})
	assert.Equal(t, apperrors.ErrInvalidParams, apperrors.ExtractCode(err))
}

func TestSpeciesSearch(t *testing.T) {
	uc := NewSpeciesUseCase(newFakeSpeciesRepo())
	ctx := context.Background()

	_, err := uc.Create(ctx, &Species{Name: "Monstera deliciosa"})
	require.NoError(t, err)

	results, err := uc.Search(ctx, "monstera", 20)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// short queries are rejected
	_, err = uc.Search(ctx, "mo", 20)
	assert.Equal(t, apperrors.ErrInvalidParams, apperrors.ExtractCode(err))
}

func TestSpeciesModify(t *testing.T) {
	uc := NewSpeciesUseCase(newFakeSpeciesRepo())
	ctx := context.Background()

	sp, err := uc.Create(ctx, &Species{Name: "Ficus lyrata"})
	require.NoError(t, err)

	common := "fiddle-leaf fig"
	updated, err := uc.Modify(ctx, &Species{ID: sp.ID, Name: "Ficus Lyrata", CommonName: &common})
	require.NoError(t, err)
	assert.Equal(t, "ficus lyrata", updated.Name)
	require.NotNil(t, updated.CommonName)
	assert.Equal(t, common, *updated.CommonName)

	_, err = uc.Modify(ctx, &Species{ID: 999, Name: "x"})
	assert.Equal(t, apperrors.ErrSpeciesNotFound, apperrors.ExtractCode(err))
}
