package service

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leafcare/terrarium-backend/internal/auth"
	"github.com/leafcare/terrarium-backend/internal/conf"
	"github.com/leafcare/terrarium-backend/internal/media"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
	"github.com/leafcare/terrarium-backend/internal/pkg/response"
	"github.com/leafcare/terrarium-backend/internal/user/biz"
)

type UserService struct {
	uc      *biz.UserUseCase
	store   *media.Store
	auth    *conf.AuthConfig
	maxSize int64
	logger  *logger.Logger
}

func NewUserService(uc *biz.UserUseCase, store *media.Store, authCfg *conf.AuthConfig, maxSize int64, log *logger.Logger) *UserService {
	return &UserService{
		uc:      uc,
		store:   store,
		auth:    authCfg,
		maxSize: maxSize,
		logger:  log,
	}
}

type RegisterRequest struct {
	Username  string  `json:"username" binding:"required"`
	Email     string  `json:"email" binding:"required"`
	Password  string  `json:"password" binding:"required"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

type SignInRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateUserRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Bio       *string `json:"bio"`
	Public    *bool   `json:"public"`
}

type ChangePasswordRequest struct {
	Current string `json:"current" binding:"required"`
	Next    string `json:"next" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// UserResponse is the profile shape. Email and verification status are
// only filled in for the account owner and admins.
type UserResponse struct {
	ID        uint          `json:"id"`
	Username  string        `json:"username"`
	Email     string        `json:"email,omitempty"`
	FirstName *string       `json:"firstName,omitempty"`
	LastName  *string       `json:"lastName,omitempty"`
	Bio       *string       `json:"bio,omitempty"`
	Public    bool          `json:"public"`
	Verified  *bool         `json:"verified,omitempty"`
	Avatar    media.MapJSON `json:"avatar,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

type SignInResponse struct {
	User  *UserResponse `json:"user"`
	Token string        `json:"token"`
}

func (s *UserService) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams))
		return
	}

	user, err := s.uc.Register(c.Request.Context(), &biz.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, toResponse(user, true))
}

func (s *UserService) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams))
		return
	}

	user, sess, token, err := s.uc.SignIn(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	s.setSessionCookie(c, sess.ID, int(s.auth.SessionTTL.Seconds()))

	response.Success(c, &SignInResponse{
		User:  toResponse(user, true),
		Token: token,
	})
}

func (s *UserService) SignOut(c *gin.Context) {
	req := auth.RequesterFrom(c)
	if err := s.uc.SignOut(c.Request.Context(), req.SessionID); err != nil {
		s.logger.Error("failed to delete session", zap.Error(err))
	}

	s.setSessionCookie(c, "", -1)
	response.NoContent(c)
}

func (s *UserService) GetSelf(c *gin.Context) {
	req := auth.RequesterFrom(c)

	user, err := s.uc.Get(c.Request.Context(), req, req.UserID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toResponse(user, true))
}

func (s *UserService) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	req := auth.RequesterFrom(c)

	user, err := s.uc.Get(c.Request.Context(), req, id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	self := req.SignedIn && (req.UserID == id || req.IsAdmin())
	response.Success(c, toResponse(user, self))
}

func (s *UserService) Modify(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams))
		return
	}

	user, err := s.uc.Modify(c.Request.Context(), id, &biz.UpdateProfile{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Public:    req.Public,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toResponse(user, true))
}

func (s *UserService) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams))
		return
	}

	requester := auth.RequesterFrom(c)
	if err := s.uc.ChangePassword(c.Request.Context(), requester.UserID, req.Current, req.Next); err != nil {
		response.HandleError(c, err)
		return
	}

	s.setSessionCookie(c, "", -1)
	response.NoContent(c)
}

func (s *UserService) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams))
		return
	}

	if err := s.uc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.HandleError(c, err)
		return
	}

	response.NoContent(c)
}

func (s *UserService) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams))
		return
	}

	if err := s.uc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		response.HandleError(c, err)
		return
	}

	response.NoContent(c)
}

func (s *UserService) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams))
		return
	}

	if err := s.uc.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		response.HandleError(c, err)
		return
	}

	response.NoContent(c)
}

func (s *UserService) SetAvatar(c *gin.Context) {
	requester := auth.RequesterFrom(c)

	upload, err := c.FormFile("avatar")
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

	user, err := s.uc.SetAvatar(c.Request.Context(), requester.UserID, tempPath)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toResponse(user, true))
}

func (s *UserService) ClearAvatar(c *gin.Context) {
	requester := auth.RequesterFrom(c)

	if err := s.uc.ClearAvatar(c.Request.Context(), requester.UserID); err != nil {
		response.HandleError(c, err)
		return
	}

	response.NoContent(c)
}

func (s *UserService) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetCookie(s.auth.CookieName, value, maxAge, "/", s.auth.CookieDomain, s.auth.CookieSecure, true)
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.HandleError(c, apperrors.NewValidationError("id"))
		return 0, false
	}
	return uint(id), true
}

func toResponse(user *biz.User, self bool) *UserResponse {
	out := &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Bio:       user.Bio,
		Public:    user.Public,
		Avatar:    user.Avatar,
		CreatedAt: user.CreatedAt,
	}

	if self {
		out.Email = user.Email
		verified := user.Verified
		out.Verified = &verified
	}

	return out
}

func (s *UserService) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.POST("", s.Register)
		users.POST("/signin", s.SignIn)
		users.POST("/password/forgot", s.ForgotPassword)
		users.POST("/password/reset", s.ResetPassword)
		users.POST("/verify", s.VerifyEmail)
		users.GET("/:id", s.Get)

		signedIn := users.Group("", auth.RequireSignIn())
		{
			signedIn.POST("/signout", s.SignOut)
			signedIn.GET("/me", s.GetSelf)
			signedIn.PUT("/me/password", s.ChangePassword)
			signedIn.PUT("/me/avatar", s.SetAvatar)
			signedIn.DELETE("/me/avatar", s.ClearAvatar)
			signedIn.PUT("/:id", auth.RequireSelf("id"), s.Modify)
		}
	}
}
