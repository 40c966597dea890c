package guard

import (
	"context"
	"fmt"

	"github.com/leafcare/terrarium-backend/internal/pkg/database"
)

type gormRepo struct {
	db *database.DB
}

// NewRepo creates a guard repo reading ownership columns straight from
// the resource tables.
func NewRepo(db *database.DB) Repo {
	return &gormRepo{db: db}
}

func tableFor(kind Kind) (string, error) {
	switch kind {
	case KindLocation:
		return "locations", nil
	case KindPlant:
		return "plants", nil
	case KindPhoto:
		return "photos", nil
	default:
		return "", fmt.Errorf("unknown resource kind %q", kind)
	}
}

func (r *gormRepo) Get(ctx context.Context, kind Kind, id uint) (*Resource, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	var row struct {
		UserID uint
		Public bool
	}

	err = r.db.GetDB().WithContext(ctx).
		Table(table).
		Select("user_id", "public").
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, NotFoundError(kind)
		}
		return nil, err
	}

	return &Resource{OwnerID: row.UserID, Public: row.Public}, nil
}
