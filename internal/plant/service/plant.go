package service

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leafcare/terrarium-backend/internal/auth"
	"github.com/leafcare/terrarium-backend/internal/media"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
	"github.com/leafcare/terrarium-backend/internal/pkg/response"
	"github.com/leafcare/terrarium-backend/internal/plant/biz"
)

type PlantService struct {
	uc     *biz.PlantUseCase
	logger *logger.Logger
}

func NewPlantService(uc *biz.PlantUseCase, log *logger.Logger) *PlantService {
	return &PlantService{
		uc:     uc,
		logger: log,
	}
}

type CreatePlantRequest struct {
	LocationID  uint       `json:"locationId" binding:"required"`
	SpeciesID   *uint      `json:"speciesId"`
	CustomName  *string    `json:"customName"`
	Description *string    `json:"description"`
	Condition   *string    `json:"condition"`
	Public      bool       `json:"public"`
	WaterFreq   *int       `json:"waterFreq"`
	WaterLast   *time.Time `json:"waterLast"`
	FertFreq    *int       `json:"fertFreq"`
	FertLast    *time.Time `json:"fertLast"`
	PotSize     *int       `json:"potSize"`
	PotType     *string    `json:"potType"`
	Soil        *string    `json:"soil"`
}

type UpdatePlantRequest struct {
	LocationID  *uint      `json:"locationId"`
	SpeciesID   *uint      `json:"speciesId"`
	CustomName  *string    `json:"customName"`
	Description *string    `json:"description"`
	Condition   *string    `json:"condition"`
	Public      *bool      `json:"public"`
	WaterFreq   *int       `json:"waterFreq"`
	WaterLast   *time.Time `json:"waterLast"`
	FertFreq    *int       `json:"fertFreq"`
	FertLast    *time.Time `json:"fertLast"`
	PotSize     *int       `json:"potSize"`
	PotType     *string    `json:"potType"`
	Soil        *string    `json:"soil"`
	CoverID     *uint      `json:"coverId"`
}

type MassActionRequest struct {
	IDs        []uint `json:"ids" binding:"required"`
	LocationID uint   `json:"locationId"`
}

type MassActionResponse struct {
	Requested int   `json:"requested"`
	Affected  int64 `json:"affected"`
	Partial   bool  `json:"partial"`
}

type PlantResponse struct {
	ID          uint          `json:"id"`
	LocationID  uint          `json:"locationId"`
	SpeciesID   *uint         `json:"speciesId"`
	SpeciesName *string       `json:"speciesName"`
	CustomName  *string       `json:"customName"`
	Description *string       `json:"description"`
	Condition   *string       `json:"condition"`
	Public      bool          `json:"public"`
	WaterFreq   *int          `json:"waterFreq"`
	WaterLast   *time.Time    `json:"waterLast"`
	WaterNext   *time.Time    `json:"waterNext"`
	FertFreq    *int          `json:"fertFreq"`
	FertLast    *time.Time    `json:"fertLast"`
	FertNext    *time.Time    `json:"fertNext"`
	PotSize     *int          `json:"potSize"`
	PotType     *string       `json:"potType"`
	Soil        *string       `json:"soil"`
	CoverID     *uint         `json:"coverId"`
	Cover       media.MapJSON `json:"cover,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func (s *PlantService) Create(c *gin.Context) {
	var req CreatePlantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams))
		return
	}

	plant, err := s.uc.Create(c.Request.Context(), auth.RequesterFrom(c).UserID, &biz.CreatePlant{
		LocationID:  req.LocationID,
		SpeciesID:   req.SpeciesID,
		CustomName:  req.CustomName,
		Description: req.Description,
		Condition:   req.Condition,
		Public:      req.Public,
		WaterFreq:   req.WaterFreq,
		WaterLast:   req.WaterLast,
		FertFreq:    req.FertFreq,
		FertLast:    req.FertLast,
		PotSize:     req.PotSize,
		PotType:     req.PotType,
		Soil:        req.Soil,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, toResponse(plant))
}

func (s *PlantService) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	withCover := c.Query("cover") == "true"

	plant, err := s.uc.Get(c.Request.Context(), auth.RequesterFrom(c), id, withCover)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toResponse(plant))
}

func (s *PlantService) List(c *gin.Context) {
	requester := auth.RequesterFrom(c)

	ownerID := requester.UserID
	if v := c.Query("userId"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			response.HandleError(c, apperrors.NewValidationError("userId"))
			return
		}
		ownerID = uint(parsed)
	}

	cursor, _ := strconv.ParseUint(c.DefaultQuery("cursor", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	locationID, _ := strconv.ParseUint(c.DefaultQuery("locationId", "0"), 10, 64)

	plants, err := s.uc.List(c.Request.Context(), requester, biz.ListQuery{
		OwnerID:    ownerID,
		LocationID: uint(locationID),
		Cursor:     uint(cursor),
		Limit:      limit,
		SortByName: c.DefaultQuery("sort", "name") == "name",
		WithCover:  c.Query("cover") == "true",
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	out := make([]*PlantResponse, len(plants))
	for i, plant := range plants {
		out[i] = toResponse(plant)
	}

	response.Success(c, out)
}

func (s *PlantService) Modify(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req UpdatePlantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams))
		return
	}

	plant, err := s.uc.Modify(c.Request.Context(), auth.RequesterFrom(c), id, &biz.UpdatePlant{
		LocationID:  req.LocationID,
		SpeciesID:   req.SpeciesID,
		CustomName:  req.CustomName,
		Description: req.Description,
		Condition:   req.Condition,
		Public:      req.Public,
		WaterFreq:   req.WaterFreq,
		WaterLast:   req.WaterLast,
		FertFreq:    req.FertFreq,
		FertLast:    req.FertLast,
		PotSize:     req.PotSize,
		PotType:     req.PotType,
		Soil:        req.Soil,
		CoverID:     req.CoverID,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toResponse(plant))
}

func (s *PlantService) Remove(c *gin.Context) {
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

func (s *PlantService) MassDelete(c *gin.Context) {
	var req MassActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperrors.NewValidationError("ids"))
		return
	}

	count, err := s.uc.MassDelete(c.Request.Context(), auth.RequesterFrom(c).UserID, req.IDs)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, &MassActionResponse{
		Requested: len(req.IDs),
		Affected:  count,
		Partial:   count < int64(len(req.IDs)),
	})
}

func (s *PlantService) MassMove(c *gin.Context) {
	var req MassActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperrors.NewValidationError("ids"))
		return
	}
	if req.LocationID == 0 {
		response.HandleError(c, apperrors.NewValidationError("locationId"))
		return
	}

	count, err := s.uc.MassMove(c.Request.Context(), auth.RequesterFrom(c).UserID, req.IDs, req.LocationID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, &MassActionResponse{
		Requested: len(req.IDs),
		Affected:  count,
		Partial:   count < int64(len(req.IDs)),
	})
}

func (s *PlantService) Due(c *gin.Context) {
	plants, err := s.uc.Due(c.Request.Context(), auth.RequesterFrom(c).UserID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	out := make([]*PlantResponse, len(plants))
	for i, plant := range plants {
		out[i] = toResponse(plant)
	}

	response.Success(c, out)
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.HandleError(c, apperrors.NewValidationError("id"))
		return 0, false
	}
	return uint(id), true
}

func toResponse(plant *biz.Plant) *PlantResponse {
	return &PlantResponse{
		ID:          plant.ID,
		LocationID:  plant.LocationID,
		SpeciesID:   plant.SpeciesID,
		SpeciesName: plant.SpeciesName,
		CustomName:  plant.CustomName,
		Description: plant.Description,
		Condition:   plant.Condition,
		Public:      plant.Public,
		WaterFreq:   plant.WaterFreq,
		WaterLast:   plant.WaterLast,
		WaterNext:   plant.WaterNext,
		FertFreq:    plant.FertFreq,
		FertLast:    plant.FertLast,
		FertNext:    plant.FertNext,
		PotSize:     plant.PotSize,
		PotType:     plant.PotType,
		Soil:        plant.Soil,
		CoverID:     plant.CoverID,
		Cover:       plant.Cover,
		CreatedAt:   plant.CreatedAt,
		UpdatedAt:   plant.UpdatedAt,
	}
}

func (s *PlantService) RegisterRoutes(r *gin.RouterGroup) {
	plants := r.Group("/plants")
	{
		plants.GET("/:id", s.Get)
		plants.GET("", s.List)

		signedIn := plants.Group("", auth.RequireSignIn())
		{
			signedIn.POST("", s.Create)
			signedIn.PUT("/:id", s.Modify)
			signedIn.DELETE("/:id", s.Remove)
			signedIn.DELETE("", s.MassDelete)
			signedIn.PUT("/location", s.MassMove)
		}
	}

	tasks := r.Group("/tasks", auth.RequireSignIn())
	{
		tasks.GET("", s.Due)
	}
}
