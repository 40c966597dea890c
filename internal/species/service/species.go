package service

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/leafcare/terrarium-backend/internal/auth"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
	"github.com/leafcare/terrarium-backend/internal/pkg/response"
	"github.com/leafcare/terrarium-backend/internal/species/biz"
)

type SpeciesService struct {
	uc     *biz.SpeciesUseCase
	logger *logger.Logger
}

func NewSpeciesService(uc *biz.SpeciesUseCase, log *logger.Logger) *SpeciesService {
	return &SpeciesService{
		uc:     uc,
		logger: log,
	}
}

type SpeciesRequest struct {
	Family     *string `json:"family"`
	Name       string  `json:"name" binding:"required"`
	CommonName *string `json:"commonName"`
	Light      *string `json:"light"`
	WaterFreq  *int    `json:"waterFreq"`
	FertFreq   *int    `json:"fertFreq"`
}

type SpeciesResponse struct {
	ID         uint    `json:"id"`
	Family     *string `json:"family"`
	Name       string  `json:"name"`
	CommonName *string `json:"commonName"`
	Light      *string `json:"light"`
	WaterFreq  *int    `json:"waterFreq"`
	FertFreq   *int    `json:"fertFreq"`
}

func (s *SpeciesService) Search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	results, err := s.uc.Search(c.Request.Context(), c.Query("name"), limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	out := make([]*SpeciesResponse, len(results))
	for i, sp := range results {
		out[i] = toResponse(sp)
	}

	response.Success(c, out)
}

func (s *SpeciesService) FindOne(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.HandleError(c, apperrors.NewValidationError("id"))
		return
	}

	sp, err := s.uc.FindOne(c.Request.Context(), uint(id))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toResponse(sp))
}

func (s *SpeciesService) Create(c *gin.Context) {
	var req SpeciesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperrors.NewValidationError("name"))
		return
	}

	sp, err := s.uc.Create(c.Request.Context(), toSpecies(&req))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, toResponse(sp))
}

func (s *SpeciesService) Modify(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.HandleError(c, apperrors.NewValidationError("id"))
		return
	}

	var req SpeciesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperrors.NewValidationError("name"))
		return
	}

	sp := toSpecies(&req)
	sp.ID = uint(id)

	updated, err := s.uc.Modify(c.Request.Context(), sp)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toResponse(updated))
}

func toSpecies(req *SpeciesRequest) *biz.Species {
	return &biz.Species{
		Family:     req.Family,
		Name:       req.Name,
		CommonName: req.CommonName,
		Light:      req.Light,
		WaterFreq:  req.WaterFreq,
		FertFreq:   req.FertFreq,
	}
}

func toResponse(sp *biz.Species) *SpeciesResponse {
	return &SpeciesResponse{
		ID:         sp.ID,
		Family:     sp.Family,
		Name:       sp.Name,
		CommonName: sp.CommonName,
		Light:      sp.Light,
		WaterFreq:  sp.WaterFreq,
		FertFreq:   sp.FertFreq,
	}
}

func (s *SpeciesService) RegisterRoutes(r *gin.RouterGroup) {
	species := r.Group("/species")
	{
		species.GET("", s.Search)
		species.GET("/:id", s.FindOne)

		admin := species.Group("", auth.RequireAdmin())
		{
			admin.POST("", s.Create)
			admin.PUT("/:id", s.Modify)
		}
	}
}
