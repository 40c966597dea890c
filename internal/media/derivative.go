package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
	"github.com/leafcare/terrarium-backend/internal/pkg/workerpool"
	"go.uber.org/zap"
)

// ErrInvalidImage is returned when an upload cannot be decoded as a
// raster image.
var ErrInvalidImage = errors.New("file is not a valid image")

const (
	midWidth  = 750
	thumbSize = 400

	webpQuality = 80
)

// Config drives hashing and derivative generation
type Config struct {
	Algorithm string // md5, sha1 or sha256
	PublicDir string // root of the content-addressed tree
	TempDir   string // in-flight uploads
	Division  int    // nested directory segments per hash
	WebP      bool   // also emit webp derivatives
	WebPOnly  bool   // emit only webp derivatives
}

// Generator turns an uploaded source image into the fixed derivative set
// (full, mid, thumb), optionally duplicated in WebP. Resizing is CPU
// bound, so the actual work runs on the worker pool.
type Generator struct {
	cfg    Config
	pool   *workerpool.Pool
	logger *logger.Logger
}

// NewGenerator creates a derivative generator
func NewGenerator(cfg Config, pool *workerpool.Pool, log *logger.Logger) *Generator {
	return &Generator{
		cfg:    cfg,
		pool:   pool,
		logger: log,
	}
}

// Generate writes the derivative set for src into the directory derived
// from hash, returning relative paths keyed by derivative name. The
// source's EXIF orientation is normalized before resizing, so consumers
// never need to interpret orientation metadata.
func (g *Generator) Generate(ctx context.Context, src string, hash string) (paths, webpPaths MapJSON, err error) {
	relDir, base := PathFor(hash, g.cfg.Division)
	destDir := filepath.Join(g.cfg.PublicDir, relDir)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	err = g.pool.Run(ctx, func() error {
		img, openErr := imaging.Open(src, imaging.AutoOrientation(true))
		if openErr != nil {
			return ErrInvalidImage
		}

		format, formatErr := detectFormat(src)
		if formatErr != nil {
			return ErrInvalidImage
		}

		variants := map[string]image.Image{
			SizeFull:  img,
			SizeMid:   resizeMid(img),
			SizeThumb: imaging.Fill(img, thumbSize, thumbSize, imaging.Center, imaging.Lanczos),
		}

		if !g.cfg.WebPOnly {
			names := Filenames(base, format)
			paths = make(MapJSON, len(names))

			for size, name := range names {
				if saveErr := imaging.Save(variants[size], filepath.Join(destDir, name)); saveErr != nil {
					return fmt.Errorf("failed to save %s derivative: %w", size, saveErr)
				}
				paths[size] = filepath.Join(relDir, name)
			}
		}

		if g.cfg.WebP || g.cfg.WebPOnly {
			names := Filenames(base, "webp")
			webpPaths = make(MapJSON, len(names))

			for size, name := range names {
				if saveErr := saveWebP(variants[size], filepath.Join(destDir, name)); saveErr != nil {
					return fmt.Errorf("failed to save %s webp derivative: %w", size, saveErr)
				}
				webpPaths[size] = filepath.Join(relDir, name)
			}
		}

		return nil
	})
	if err != nil {
		// partial output is useless; leave nothing behind
		g.removeAll(append(paths.values(), webpPaths.values()...))
		return nil, nil, err
	}

	return paths, webpPaths, nil
}

// resizeMid caps the width, anchored at the top-left of the frame
func resizeMid(img image.Image) image.Image {
	if img.Bounds().Dx() <= midWidth {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, midWidth, 0, imaging.Lanczos)
}

// detectFormat sniffs the encoded format and maps it to a file extension
func detectFormat(src string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer f.Close()

	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return "", err
	}

	if format == "jpeg" {
		return "jpg", nil
	}
	return format, nil
}

func saveWebP(img image.Image, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	return webp.Encode(f, img, &webp.Options{Quality: webpQuality})
}

// RemoveTemp deletes an in-flight upload. A missing file is not an
// error; failures are logged and swallowed.
func (g *Generator) RemoveTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		g.logger.Warn("failed to remove temp file",
			zap.String("path", path),
			zap.Error(err),
		)
	}
}

// removeAll unlinks the given relative paths under the public root,
// best effort.
func (g *Generator) removeAll(relPaths []string) {
	for _, rel := range relPaths {
		if rel == "" {
			continue
		}
		if err := os.Remove(filepath.Join(g.cfg.PublicDir, rel)); err != nil && !os.IsNotExist(err) {
			g.logger.Warn("failed to remove derivative file",
				zap.String("path", rel),
				zap.Error(err),
			)
		}
	}
}
