package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
)

type ProfileController struct {
	service *auth.Service
}

func NewProfileController(service *auth.Service) *ProfileController {
	return &ProfileController{service: service}
}

// GetProfile returns the caller's account details.
// GET /api/profile
func (pc *ProfileController) GetProfile(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	user, err := pc.service.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respondNotFound(c, "user")
			return
		}
		respondInternalError(c, err, "get profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"name":     user.Name,
		"username": user.Username,
		"role":     user.Role,
	})
}

type profileRequest struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required"`
}

// UpdateProfile changes the caller's display name and username.
// PUT /api/profile
func (pc *ProfileController) UpdateProfile(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name and username are required")
		return
	}

	user, err := pc.service.UpdateProfile(userID, req.Name, req.Username)
	if err != nil {
		respondAuthError(c, err, "update profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"name":     user.Name,
		"username": user.Username,
		"role":     user.Role,
	})
}

type passwordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword rotates the caller's password. The new password must differ
// from the old one.
// PUT /api/profile/password
func (pc *ProfileController) ChangePassword(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "old and new passwords are required")
		return
	}

	if err := pc.service.ChangePassword(userID, req.OldPassword, req.NewPassword); err != nil {
		respondAuthError(c, err, "change password")
		return
	}

	respondSuccess(c, "password changed")
}

// respondAuthError maps account service errors onto HTTP status codes.
func respondAuthError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		respondNotFound(c, "user")
	case errors.Is(err, auth.ErrUserExists):
		respondConflict(c, err.Error())
	case errors.Is(err, auth.ErrInvalidPassword):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrNameRequired),
		errors.Is(err, auth.ErrUsernameRequired),
		errors.Is(err, auth.ErrUsernameInvalid),
		errors.Is(err, auth.ErrPasswordRequired),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrSamePassword):
		respondBadRequest(c, err.Error())
	default:
		respondInternalError(c, err, context)
	}
}
