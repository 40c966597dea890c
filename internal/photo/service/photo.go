package service

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leafcare/terrarium-backend/internal/auth"
	"github.com/leafcare/terrarium-backend/internal/media"
	"github.com/leafcare/terrarium-backend/internal/photo/biz"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
	"github.com/leafcare/terrarium-backend/internal/pkg/response"
)

type PhotoService struct {
	uc      *biz.PhotoUseCase
	store   *media.Store
	maxSize int64
	logger  *logger.Logger
}

func NewPhotoService(uc *biz.PhotoUseCase, store *media.Store, maxSize int64, log *logger.Logger) *PhotoService {
	return &PhotoService{
		uc:      uc,
		store:   store,
		maxSize: maxSize,
		logger:  log,
	}
}

type UpdatePhotoRequest struct {
	Description *string    `json:"description"`
	Public      *bool      `json:"public"`
	TakenAt     *time.Time `json:"takenAt"`
}

type NavigationResponse struct {
	PrevID *uint `json:"prevId"`
	NextID *uint `json:"nextId"`
}

type PhotoResponse struct {
	ID          uint          `json:"id"`
	PlantID     uint          `json:"plantId"`
	Description *string       `json:"description"`
	Public      bool          `json:"public"`
	TakenAt     time.Time     `json:"takenAt"`
	Images      media.MapJSON `json:"images,omitempty"`
	WebP        media.MapJSON `json:"webp,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Create accepts a multipart batch: one or more files under "photos"
// plus shared metadata fields.
func (s *PhotoService) Create(c *gin.Context) {
	plantID, err := strconv.ParseUint(c.PostForm("plantId"), 10, 64)
	if err != nil {
		response.HandleError(c, apperrors.NewValidationError("plantId"))
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrUploadMissing))
		return
	}

	uploads := form.File["photos"]
	if len(uploads) == 0 {
		response.HandleError(c, apperrors.New(apperrors.ErrUploadMissing))
		return
	}

	meta := &biz.CreatePhotos{
		PlantID: uint(plantID),
		Public:  c.PostForm("public") == "true",
	}
	if desc := c.PostForm("description"); desc != "" {
		meta.Description = &desc
	}
	if v := c.PostForm("takenAt"); v != "" {
		takenAt, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.HandleError(c, apperrors.NewValidationError("takenAt"))
			return
		}
		meta.TakenAt = &takenAt
	}

	tempPaths := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		if upload.Size > s.maxSize {
			for _, path := range tempPaths {
				s.store.RemoveTemp(path)
			}
			response.HandleError(c, apperrors.New(apperrors.ErrImageTooLarge))
			return
		}

		tempPath := s.store.TempPath()
		if err := c.SaveUploadedFile(upload, tempPath); err != nil {
			s.logger.Error("failed to save upload", zap.Error(err))
			for _, path := range tempPaths {
				s.store.RemoveTemp(path)
			}
			response.HandleError(c, apperrors.New(apperrors.ErrMediaStorage))
			return
		}
		tempPaths = append(tempPaths, tempPath)
	}

	photos, err := s.uc.Create(c.Request.Context(), auth.RequesterFrom(c), meta, tempPaths)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	out := make([]*PhotoResponse, len(photos))
	for i, photo := range photos {
		out[i] = toResponse(photo)
	}

	response.Created(c, out)
}

func (s *PhotoService) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	photo, err := s.uc.Get(c.Request.Context(), auth.RequesterFrom(c), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toResponse(photo))
}

func (s *PhotoService) ListByPlant(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	photos, err := s.uc.ListByPlant(c.Request.Context(), auth.RequesterFrom(c), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	out := make([]*PhotoResponse, len(photos))
	for i, photo := range photos {
		out[i] = toResponse(photo)
	}

	response.Success(c, out)
}

func (s *PhotoService) Navigation(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	nav, err := s.uc.Navigation(c.Request.Context(), auth.RequesterFrom(c), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, &NavigationResponse{PrevID: nav.PrevID, NextID: nav.NextID})
}

func (s *PhotoService) Modify(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req UpdatePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams))
		return
	}

	photo, err := s.uc.Modify(c.Request.Context(), auth.RequesterFrom(c), id, &biz.UpdatePhoto{
		Description: req.Description,
		Public:      req.Public,
		TakenAt:     req.TakenAt,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toResponse(photo))
}

func (s *PhotoService) Remove(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := s.uc.Remove(c.Request.Context(), auth.RequesterFrom(c), id); err != nil {
		response.HandleError(c, err)
		return
	}

	response.NoContent(c)
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.HandleError(c, apperrors.NewValidationError("id"))
		return 0, false
	}
	return uint(id), true
}

func toResponse(photo *biz.Photo) *PhotoResponse {
	return &PhotoResponse{
		ID:          photo.ID,
		PlantID:     photo.PlantID,
		Description: photo.Description,
		Public:      photo.Public,
		TakenAt:     photo.TakenAt,
		Images:      photo.Images,
		WebP:        photo.WebP,
		CreatedAt:   photo.CreatedAt,
		UpdatedAt:   photo.UpdatedAt,
	}
}

func (s *PhotoService) RegisterRoutes(r *gin.RouterGroup) {
	photos := r.Group("/photos")
	{
		photos.GET("/:id", s.Get)
		photos.GET("/:id/navigation", s.Navigation)

		signedIn := photos.Group("", auth.RequireSignIn())
		{
			signedIn.POST("", s.Create)
			signedIn.PUT("/:id", s.Modify)
			signedIn.DELETE("/:id", s.Remove)
		}
	}

	// nested listing lives under the plant surface
	r.GET("/plants/:id/photos", s.ListByPlant)
}
