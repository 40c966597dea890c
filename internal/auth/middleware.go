package auth

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
	"github.com/leafcare/terrarium-backend/internal/pkg/response"
	"github.com/leafcare/terrarium-backend/internal/session"
)

// Role names stored on user records and sessions
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const requesterKey = "requester"

// Requester identifies who is making the request. Anonymous requests
// carry a zero Requester; handlers decide per route whether that is
// acceptable.
type Requester struct {
	UserID    uint
	Role      string
	SessionID string
	SignedIn  bool
}

// IsAdmin reports whether the requester has the admin role
func (r Requester) IsAdmin() bool {
	return r.SignedIn && r.Role == RoleAdmin
}

// RequesterFrom reads the requester injected by Authenticate. Routes
// not behind Authenticate see an anonymous requester.
func RequesterFrom(c *gin.Context) Requester {
	if v, ok := c.Get(requesterKey); ok {
		if r, ok := v.(Requester); ok {
			return r
		}
	}
	return Requester{}
}

// Authenticate resolves the requester from the session cookie or, for
// cookie-less API clients, a bearer token. It never rejects: requests
// with no usable credentials proceed anonymously and per-route
// middleware decides what anonymous users may do.
func Authenticate(sessions *session.Manager, jwtMgr *JWTManager, cookieName string, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
			sess, err := sessions.Get(c.Request.Context(), cookie)
			if err == nil {
				setRequester(c, Requester{
					UserID:    sess.UserID,
					Role:      sess.Role,
					SessionID: sess.ID,
					SignedIn:  true,
				})
				c.Next()
				return
			}
			if !errors.Is(err, session.ErrNotFound) {
				log.Warn("session lookup failed", zap.Error(err))
			}
		}

		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			token, err := ExtractBearer(authHeader)
			if err == nil {
				claims, err := jwtMgr.Verify(token)
				if err == nil {
					setRequester(c, Requester{
						UserID:   claims.UserID,
						Role:     claims.Role,
						SignedIn: true,
					})
					c.Next()
					return
				}
				log.Debug("bearer token rejected",
					zap.Error(err),
					zap.String("ip", c.ClientIP()),
				)
			}
		}

		c.Next()
	}
}

func setRequester(c *gin.Context, r Requester) {
	c.Set(requesterKey, r)
	c.Request = c.Request.WithContext(
		logger.WithUserID(c.Request.Context(), r.UserID),
	)
}

// RequireSignIn rejects anonymous requests
func RequireSignIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !RequesterFrom(c).SignedIn {
			response.HandleError(c, apperrors.New(apperrors.ErrAuthNotSignedIn))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects requests not made by an admin
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !RequesterFrom(c).IsAdmin() {
			response.HandleError(c, apperrors.New(apperrors.ErrForbidden))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSelf rejects requests whose :id path parameter names a user
// other than the requester. Admins may act on any user's account; this
// override applies to account routes only.
func RequireSelf(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := RequesterFrom(c)
		if !req.SignedIn {
			response.HandleError(c, apperrors.New(apperrors.ErrAuthNotSignedIn))
			c.Abort()
			return
		}

		id, err := strconv.ParseUint(c.Param(param), 10, 64)
		if err != nil {
			response.HandleError(c, apperrors.NewValidationError(param))
			c.Abort()
			return
		}

		if uint(id) != req.UserID && !req.IsAdmin() {
			response.HandleError(c, apperrors.New(apperrors.ErrForbidden))
			c.Abort()
			return
		}

		c.Next()
	}
}
