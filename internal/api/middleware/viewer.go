package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/nhl-cortex/internal/models"
	"github.com/stitts-dev/nhl-cortex/internal/services"
	"github.com/stitts-dev/nhl-cortex/pkg/database"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

const (
	ContextUser   = "user"
	ContextViewer = "viewer"
)

// LoadViewer resolves the authenticated user and their premium flag. Runs
// after AuthRequired or OptionalAuth. A token whose account no longer exists
// is treated as anonymous.
func LoadViewer(db *database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := services.Viewer{}

		if userID, ok := GetUserID(c); ok {
			user, err := models.GetUserByID(db, userID)
			switch {
			case err == nil:
				if user.IsActive {
					viewer = services.Viewer{UserID: user.ID.String(), Premium: user.IsPremium}
					c.Set(ContextUser, user)
				}
			case errors.Is(err, utils.ErrNotFound):
			default:
				utils.SendInternalError(c, "Failed to load user")
				c.Abort()
				return
			}
		}

		c.Set(ContextViewer, viewer)
		c.Next()
	}
}

// GetViewer returns the viewer LoadViewer stored, anonymous when absent
func GetViewer(c *gin.Context) services.Viewer {
	if value, exists := c.Get(ContextViewer); exists {
		if viewer, ok := value.(services.Viewer); ok {
			return viewer
		}
	}
	return services.Viewer{}
}

// GetUser returns the account LoadViewer stored
func GetUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

// AdminRequired admits staff accounts only. Runs after LoadViewer.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUser(c)
		if !ok || !user.IsStaff {
			utils.SendForbidden(c, "Staff access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
