package guard

import (
	"context"

	"github.com/leafcare/terrarium-backend/internal/auth"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
)

// Kind names an ownable resource type
type Kind string

const (
	KindLocation Kind = "location"
	KindPlant    Kind = "plant"
	KindPhoto    Kind = "photo"
)

// Resource is the ownership view of a row: who owns it and whether it
// is publicly visible.
type Resource struct {
	OwnerID uint
	Public  bool
}

// Repo loads the ownership view of a resource by kind and id
type Repo interface {
	Get(ctx context.Context, kind Kind, id uint) (*Resource, error)
}

// Guard answers access questions about ownable resources. Reads are
// allowed for the owner, for anyone when the resource is public, and
// for admins. Writes are owner-only, with no admin override.
type Guard struct {
	repo Repo
}

// New creates a guard backed by the given repo
func New(repo Repo) *Guard {
	return &Guard{repo: repo}
}

// Resource exposes the ownership view for callers that branch on it
func (g *Guard) Resource(ctx context.Context, kind Kind, id uint) (*Resource, error) {
	return g.repo.Get(ctx, kind, id)
}

// CanRead returns nil when the requester may view the resource
func (g *Guard) CanRead(ctx context.Context, req auth.Requester, kind Kind, id uint) error {
	res, err := g.repo.Get(ctx, kind, id)
	if err != nil {
		return err
	}

	if res.Public {
		return nil
	}
	if req.SignedIn && (req.UserID == res.OwnerID || req.IsAdmin()) {
		return nil
	}

	return apperrors.New(apperrors.ErrForbidden)
}

// CanWrite returns nil when the requester may modify the resource
func (g *Guard) CanWrite(ctx context.Context, req auth.Requester, kind Kind, id uint) error {
	if !req.SignedIn {
		return apperrors.New(apperrors.ErrAuthNotSignedIn)
	}

	res, err := g.repo.Get(ctx, kind, id)
	if err != nil {
		return err
	}

	if req.UserID != res.OwnerID {
		return apperrors.New(apperrors.ErrForbidden)
	}

	return nil
}

// CheckRelationship verifies that a referenced resource exists and is
// owned by the user, so records can never be attached to somebody
// else's collection.
func (g *Guard) CheckRelationship(ctx context.Context, kind Kind, id uint, userID uint) error {
	res, err := g.repo.Get(ctx, kind, id)
	if err != nil {
		return err
	}

	if res.OwnerID != userID {
		return apperrors.New(apperrors.ErrForbidden)
	}

	return nil
}

// NotFoundError returns the kind-specific not-found error
func NotFoundError(kind Kind) *apperrors.AppError {
	switch kind {
	case KindLocation:
		return apperrors.New(apperrors.ErrLocationNotFound)
	case KindPlant:
		return apperrors.New(apperrors.ErrPlantNotFound)
	case KindPhoto:
		return apperrors.New(apperrors.ErrPhotoNotFound)
	default:
		return apperrors.New(apperrors.ErrNotFound, string(kind))
	}
}
