package media

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// MapJSON stores derivative paths as a JSONB column, keyed by
// derivative name.
type MapJSON map[string]string

func (m *MapJSON) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, m)
}

func (m MapJSON) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m MapJSON) values() []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

// HashPO is the content-hash row: one per unique binary payload, with
// the number of live records pointing at it.
type HashPO struct {
	ID         uint    `gorm:"primarykey"`
	Hash       string  `gorm:"size:128;not null;uniqueIndex:idx_hashes_hash"`
	LocalPaths MapJSON `gorm:"type:jsonb"`
	WebPPaths  MapJSON `gorm:"type:jsonb"`
	References int     `gorm:"not null;default:1"`
	CreatedAt  time.Time
}

func (HashPO) TableName() string {
	return "hashes"
}

// Hash is the business view of a stored content hash
type Hash struct {
	ID         uint
	Hash       string
	LocalPaths MapJSON
	WebPPaths  MapJSON
	References int
}

// LocalFile describes one processed upload: its content hash and the
// relative derivative paths. Duplicate marks payloads whose derivatives
// were already on disk, so no files were written for this upload.
type LocalFile struct {
	Hash      string
	Paths     MapJSON
	WebP      MapJSON
	Duplicate bool
}
