package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pairlink-server/internal/models"
	"pairlink-server/internal/utils"
)

// resolvePartner loads the caller and the account their partner email points
// at. When the caller lists their own address the same account is returned
// for both, which is the self-messaging case. On failure it writes the error
// response and returns false.
func resolvePartner(c *gin.Context, db *gorm.DB, userID string) (caller models.User, partner models.User, ok bool) {
	if err := db.First(&caller, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User profile not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return caller, partner, false
	}

	if caller.PartnerEmail == "" {
		utils.BadRequest(c, "No partner email set on your profile. Update your profile first.")
		return caller, partner, false
	}

	if err := db.Where("email = ?", caller.PartnerEmail).First(&partner).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "No account found for your partner email")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return caller, partner, false
	}

	return caller, partner, true
}
