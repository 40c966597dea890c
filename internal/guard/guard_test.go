package guard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leafcare/terrarium-backend/internal/auth"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
)

type fakeRepo struct {
	resources map[Kind]map[uint]*Resource
}

func (f *fakeRepo) Get(_ context.Context, kind Kind, id uint) (*Resource, error) {
	if res, ok := f.resources[kind][id]; ok {
		return res, nil
	}
	return nil, NotFoundError(kind)
}

func newTestGuard() *Guard {
	return New(&fakeRepo{
		resources: map[Kind]map[uint]*Resource{
			KindPlant: {
				1: {OwnerID: 10, Public: false},
				2: {OwnerID: 10, Public: true},
			},
			KindLocation: {
				5: {OwnerID: 20, Public: false},
			},
		},
	})
}

func TestCanRead(t *testing.T) {
	g := newTestGuard()
	ctx := context.Background()

	owner := auth.Requester{UserID: 10, Role: auth.RoleUser, SignedIn: true}
	stranger := auth.Requester{UserID: 99, Role: auth.RoleUser, SignedIn: true}
	admin := auth.Requester{UserID: 50, Role: auth.RoleAdmin, SignedIn: true}
	anonymous := auth.Requester{}

	tests := []struct {
		name     string
		req      auth.Requester
		kind     Kind
		id       uint
		wantCode int
	}{
		{"owner reads private", owner, KindPlant, 1, 0},
		{"owner reads public", owner, KindPlant, 2, 0},
		{"stranger reads public", stranger, KindPlant, 2, 0},
		{"anonymous reads public", anonymous, KindPlant, 2, 0},
		{"stranger blocked from private", stranger, KindPlant, 1, apperrors.ErrForbidden},
		{"anonymous blocked from private", anonymous, KindPlant, 1, apperrors.ErrForbidden},
		{"admin reads private", admin, KindPlant, 1, 0},
		{"missing resource", owner, KindPlant, 404, apperrors.ErrPlantNotFound},
		{"missing location", owner, KindLocation, 404, apperrors.ErrLocationNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.CanRead(ctx, tt.req, tt.kind, tt.id)
			if tt.wantCode == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantCode, apperrors.ExtractCode(err))
		})
	}
}

func TestCanWrite(t *testing.T) {
	g := newTestGuard()
	ctx := context.Background()

	owner := auth.Requester{UserID: 10, Role: auth.RoleUser, SignedIn: true}
	stranger := auth.Requester{UserID: 99, Role: auth.RoleUser, SignedIn: true}
	admin := auth.Requester{UserID: 50, Role: auth.RoleAdmin, SignedIn: true}

	assert.NoError(t, g.CanWrite(ctx, owner, KindPlant, 1))

	// public visibility never grants write access
	err := g.CanWrite(ctx, stranger, KindPlant, 2)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.ExtractCode(err))

	// admins read everything but write nothing they do not own
	err = g.CanWrite(ctx, admin, KindPlant, 1)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.ExtractCode(err))

	err = g.CanWrite(ctx, auth.Requester{}, KindPlant, 1)
	assert.Equal(t, apperrors.ErrAuthNotSignedIn, apperrors.ExtractCode(err))
}

func TestCheckRelationship(t *testing.T) {
	g := newTestGuard()
	ctx := context.Background()

	assert.NoError(t, g.CheckRelationship(ctx, KindLocation, 5, 20))

	err := g.CheckRelationship(ctx, KindLocation, 5, 10)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.ExtractCode(err))

	err = g.CheckRelationship(ctx, KindLocation, 404, 20)
	assert.Equal(t, apperrors.ErrLocationNotFound, apperrors.ExtractCode(err))
}
