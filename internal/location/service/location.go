package service

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leafcare/terrarium-backend/internal/auth"
	"github.com/leafcare/terrarium-backend/internal/location/biz"
	"github.com/leafcare/terrarium-backend/internal/media"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
	"github.com/leafcare/terrarium-backend/internal/pkg/response"
)

type LocationService struct {
	uc      *biz.LocationUseCase
	store   *media.Store
	maxSize int64
	logger  *logger.Logger
}

func NewLocationService(uc *biz.LocationUseCase, store *media.Store, maxSize int64, log *logger.Logger) *LocationService {
	return &LocationService{
		uc:      uc,
		store:   store,
		maxSize: maxSize,
		logger:  log,
	}
}

type LocationRequest struct {
	Name   string `json:"name" binding:"required"`
	Light  string `json:"light" binding:"required"`
	Public bool   `json:"public"`
}

type LocationResponse struct {
	ID         uint          `json:"id"`
	Name       string        `json:"name"`
	Light      string        `json:"light"`
	Public     bool          `json:"public"`
	Pictures   media.MapJSON `json:"pictures,omitempty"`
	PlantCount int64         `json:"plantCount"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

func (s *LocationService) Create(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams))
		return
	}

	location, err := s.uc.Create(c.Request.Context(), &biz.Location{
		UserID: auth.RequesterFrom(c).UserID,
		Name:   req.Name,
		Light:  req.Light,
		Public: req.Public,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, toResponse(location))
}

func (s *LocationService) List(c *gin.Context) {
	locations, err := s.uc.List(c.Request.Context(), auth.RequesterFrom(c).UserID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	out := make([]*LocationResponse, len(locations))
	for i, location := range locations {
		out[i] = toResponse(location)
	}

	response.Success(c, out)
}

func (s *LocationService) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	location, err := s.uc.Get(c.Request.Context(), auth.RequesterFrom(c), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toResponse(location))
}

func (s *LocationService) Modify(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams))
		return
	}

	location, err := s.uc.Modify(c.Request.Context(), auth.RequesterFrom(c), &biz.Location{
		ID:     id,
		Name:   req.Name,
		Light:  req.Light,
		Public: req.Public,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toResponse(location))
}

func (s *LocationService) Remove(c *gin.Context) {
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

func (s *LocationService) SetPicture(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	upload, err := c.FormFile("picture")
	if err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrUploadMissing))
		return
	}
	if upload.Size > s.maxSize {
		response.HandleError(c, apperrors.New(apperrors.ErrImageTooLarge))
		return
	}

	tempPath := s.store.TempPath()
	if err := c.SaveUploadedFile(upload, tempPath); err != nil {
		s.logger.Error("failed to save upload", zap.Error(err))
		response.HandleError(c, apperrors.New(apperrors.ErrMediaStorage))
		return
	}

	location, err := s.uc.SetPicture(c.Request.Context(), auth.RequesterFrom(c), id, tempPath)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toResponse(location))
}

func (s *LocationService) ClearPicture(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := s.uc.ClearPicture(c.Request.Context(), auth.RequesterFrom(c), id); err != nil {
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

func toResponse(location *biz.Location) *LocationResponse {
	return &LocationResponse{
		ID:         location.ID,
		Name:       location.Name,
		Light:      location.Light,
		Public:     location.Public,
		Pictures:   location.Pictures,
		PlantCount: location.PlantCount,
		CreatedAt:  location.CreatedAt,
		UpdatedAt:  location.UpdatedAt,
	}
}

func (s *LocationService) RegisterRoutes(r *gin.RouterGroup) {
	locations := r.Group("/locations")
	{
		locations.GET("/:id", s.Get)

		signedIn := locations.Group("", auth.RequireSignIn())
		{
			signedIn.POST("", s.Create)
			signedIn.GET("", s.List)
			signedIn.PUT("/:id", s.Modify)
			signedIn.DELETE("/:id", s.Remove)
			signedIn.PUT("/:id/picture", s.SetPicture)
			signedIn.DELETE("/:id/picture", s.ClearPicture)
		}
	}
}
