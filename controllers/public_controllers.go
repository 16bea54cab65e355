package controllers

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mesafacil/mesafacil-api/models"
	"github.com/mesafacil/mesafacil-api/qrtoken"
	"github.com/mesafacil/mesafacil-api/utils"
)

// PublicController serves the unauthenticated QR-menu entry points: token
// validation for a scanned QR and numeric-code table access.
type PublicController struct {
	DB    *gorm.DB
	Codec *qrtoken.Codec
}

func NewPublicController(db *gorm.DB, codec *qrtoken.Codec) *PublicController {
	return &PublicController{DB: db, Codec: codec}
}

func menuBaseURL() string {
	base := os.Getenv("MENU_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return base
}

// ValidateMenuAccess checks the QR token of a scanned table and returns the
// restaurant and table summaries the menu page needs to render.
func (pc *PublicController) ValidateMenuAccess(c *gin.Context) {
	restaurantID, err1 := strconv.ParseUint(c.Query("r"), 10, 32)
	tableID, err2 := strconv.ParseUint(c.Query("t"), 10, 32)
	token := c.Query("token")
	if err1 != nil || err2 != nil || token == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid":   false,
			"error":   "missing_params",
			"message": "Missing or malformed access parameters",
		})
		return
	}

	if !pc.Codec.ValidateTableToken(token, uint(restaurantID), uint(tableID), 0) {
		c.JSON(http.StatusForbidden, gin.H{
			"valid":   false,
			"error":   "invalid_token",
			"message": "Invalid token, please scan the QR code again",
		})
		return
	}

	var restaurant models.Restaurant
	if err := pc.DB.Preload("Subscription").First(&restaurant, uint(restaurantID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"valid":   false,
			"error":   "restaurant_not_found",
			"message": "Restaurant not found",
		})
		return
	}

	var table models.Table
	if err := pc.DB.First(&table, uint(tableID)).Error; err != nil || table.RestaurantID != restaurant.ID {
		c.JSON(http.StatusNotFound, gin.H{
			"valid":   false,
			"error":   "table_not_found",
			"message": "Table not found",
		})
		return
	}

	if restaurant.Settings.Maintenance {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"valid":       false,
			"error":       "maintenance",
			"message":     "The menu is temporarily unavailable",
			"maintenance": true,
			"note":        restaurant.Settings.MaintenanceNote,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"restaurant": gin.H{
			"id":       restaurant.ID,
			"name":     restaurant.Name,
			"logo":     restaurant.LogoURL,
			"currency": restaurant.Settings.Currency,
		},
		"table": gin.H{
			"id":       table.ID,
			"number":   table.Number,
			"location": table.Location,
			"status":   table.Status,
		},
	})
}

// AccessByCode resolves a 6-digit table code to a menu URL carrying a fresh
// token, for guests who cannot scan the QR.
func (pc *PublicController) AccessByCode(c *gin.Context) {
	var body struct {
		Code string `json:"code" binding:"required,len=6"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid":   false,
			"error":   "invalid_code",
			"message": "The code must be 6 digits",
		})
		return
	}

	var table models.Table
	if err := pc.DB.Where("numeric_code = ?", body.Code).First(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"valid":   false,
				"error":   "code_not_found",
				"message": "No table matches this code",
			})
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var restaurant models.Restaurant
	if err := pc.DB.First(&restaurant, table.RestaurantID).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if restaurant.Settings.Maintenance {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"valid":       false,
			"error":       "maintenance",
			"message":     "The menu is temporarily unavailable",
			"maintenance": true,
			"note":        restaurant.Settings.MaintenanceNote,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":       true,
		"redirectUrl": pc.Codec.GenerateQRCodeURL(menuBaseURL(), restaurant.ID, table.ID),
	})
}
