package media

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/leafcare/terrarium-backend/internal/pkg/database"
	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrHashNotFound is returned when releasing a hash id with no row
var ErrHashNotFound = errors.New("content hash not found")

// Store is the content-addressed media store. It deduplicates identical
// uploads by content hash and reference-counts every hash so backing
// files are deleted exactly when the last record pointing at them goes
// away.
type Store struct {
	db     *database.DB
	gen    *Generator
	cfg    Config
	logger *logger.Logger
}

// NewStore creates a content-addressed store
func NewStore(db *database.DB, gen *Generator, cfg Config, log *logger.Logger) *Store {
	return &Store{
		db:     db,
		gen:    gen,
		cfg:    cfg,
		logger: log,
	}
}

// TempPath returns a fresh path for an in-flight upload
func (s *Store) TempPath() string {
	return filepath.Join(s.cfg.TempDir, uuid.New().String())
}

// RemoveTemp deletes an in-flight upload that will not be ingested
func (s *Store) RemoveTemp(path string) {
	s.gen.RemoveTemp(path)
}

// Ingest hashes an uploaded temp file and ensures its derivatives exist
// on disk. A payload already known to the store skips all file writes;
// the stored paths are reused. The temp file is removed on every exit
// path, success or failure.
func (s *Store) Ingest(ctx context.Context, tempPath string) (*LocalFile, error) {
	defer s.gen.RemoveTemp(tempPath)

	hash, err := HashFile(tempPath, s.cfg.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("failed to hash upload: %w", err)
	}

	var po HashPO
	err = s.db.GetDB().WithContext(ctx).Where("hash = ?", hash).First(&po).Error
	if err == nil {
		return &LocalFile{
			Hash:      hash,
			Paths:     po.LocalPaths,
			WebP:      po.WebPPaths,
			Duplicate: true,
		}, nil
	}
	if !database.IsRecordNotFoundError(err) {
		return nil, err
	}

	paths, webpPaths, err := s.gen.Generate(ctx, tempPath, hash)
	if err != nil {
		return nil, err
	}

	return &LocalFile{
		Hash:  hash,
		Paths: paths,
		WebP:  webpPaths,
	}, nil
}

// Persist records a reference to the file's content hash inside the
// caller's transaction. The increment-or-create is a single atomic
// upsert on the unique hash column; two concurrent uploads of the same
// content can never both take the create path.
func (s *Store) Persist(ctx context.Context, tx *gorm.DB, file *LocalFile) (*Hash, error) {
	po := HashPO{
		Hash:       file.Hash,
		LocalPaths: file.Paths,
		WebPPaths:  file.WebP,
		References: 1,
	}

	err := tx.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "hash"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"references": gorm.Expr("hashes.references + 1"),
				}),
			},
			clause.Returning{},
		).
		Create(&po).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert content hash: %w", err)
	}

	return &Hash{
		ID:         po.ID,
		Hash:       po.Hash,
		LocalPaths: po.LocalPaths,
		WebPPaths:  po.WebPPaths,
		References: po.References,
	}, nil
}

// Release drops one reference from a hash. When the count reaches zero
// the row is deleted and the derivative files are unlinked best effort:
// a missing file is not an error, and unlink failures never fail the
// release. Empty hash directories are left in place; a shared prefix
// directory may still hold sibling content.
func (s *Store) Release(ctx context.Context, hashID uint) error {
	var po HashPO

	result := s.db.GetDB().WithContext(ctx).
		Model(&po).
		Clauses(clause.Returning{}).
		Where("id = ?", hashID).
		UpdateColumn("references", gorm.Expr("references - 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to decrement references: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrHashNotFound
	}

	if po.References > 0 {
		return nil
	}

	if err := s.db.GetDB().WithContext(ctx).Delete(&HashPO{}, hashID).Error; err != nil {
		return fmt.Errorf("failed to delete content hash: %w", err)
	}

	s.logger.Debug("content hash released",
		zap.Uint("hash_id", hashID),
		zap.String("hash", po.Hash),
	)

	s.gen.removeAll(append(po.LocalPaths.values(), po.WebPPaths.values()...))

	return nil
}

// Discard removes derivative files written for an upload that never got
// persisted (a failed batch). Duplicates wrote nothing, so there is
// nothing to discard for them.
func (s *Store) Discard(file *LocalFile) {
	if file == nil || file.Duplicate {
		return
	}
	s.gen.removeAll(append(file.Paths.values(), file.WebP.values()...))
}
