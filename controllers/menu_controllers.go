package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mesafacil/mesafacil-api/models"
	"github.com/mesafacil/mesafacil-api/services"
	"github.com/mesafacil/mesafacil-api/utils"
)

type MenuController struct {
	DB    *gorm.DB
	Cache *services.CacheService
}

func NewMenuController(db *gorm.DB, cache *services.CacheService) *MenuController {
	return &MenuController{DB: db, Cache: cache}
}

func menuCacheKey(restaurantID uint) string {
	return fmt.Sprintf("menu:%d:public", restaurantID)
}

// GetPublicMenu returns the available items of a restaurant grouped by
// category. Responses are cached per restaurant; any menu edit invalidates.
func (mc *MenuController) GetPublicMenu(c *gin.Context) {
	restaurantID, err := strconv.ParseUint(c.Param("restaurant_id"), 10, 32)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	key := menuCacheKey(uint(restaurantID))
	if cached, ok := mc.Cache.Get(key); ok {
		utils.RespondJSON(c, http.StatusOK, "Menu", cached)
		return
	}

	var items []models.MenuItem
	if err := mc.DB.
		Where("restaurant_id = ? AND available = ?", uint(restaurantID), true).
		Order("category asc, name asc").
		Find(&items).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	grouped := make(map[string][]models.MenuItem)
	for _, item := range items {
		grouped[item.Category] = append(grouped[item.Category], item)
	}

	mc.Cache.Set(key, grouped, services.DefaultCacheTTL)
	utils.RespondJSON(c, http.StatusOK, "Menu", grouped)
}

// GetAllMenuItems lists every item of the tenant including unavailable ones.
func (mc *MenuController) GetAllMenuItems(c *gin.Context) {
	restaurantID := c.GetUint("restaurantID")

	var items []models.MenuItem
	if err := mc.DB.Where("restaurant_id = ?", restaurantID).
		Order("category asc, name asc").
		Find(&items).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menu items", items)
}

type menuItemRequest struct {
	Name        string                      `json:"name" binding:"required"`
	Description string                      `json:"description"`
	Category    string                      `json:"category" binding:"required"`
	Price       float64                     `json:"price" binding:"required,gt=0"`
	Photo       string                      `json:"photo"`
	Available   *bool                       `json:"available"`
	ETA         int                         `json:"eta"`
	Options     models.CustomizationOptions `json:"options"`
}

// CreateMenuItem adds an item and invalidates the tenant's menu cache.
func (mc *MenuController) CreateMenuItem(c *gin.Context) {
	var req menuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	restaurantID := c.GetUint("restaurantID")
	item := models.MenuItem{
		RestaurantID: restaurantID,
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Price:        req.Price,
		Photo:        req.Photo,
		Available:    true,
		ETA:          req.ETA,
		Options:      req.Options,
	}
	if req.Available != nil {
		item.Available = *req.Available
	}
	if item.ETA <= 0 {
		item.ETA = 15
	}

	if err := mc.DB.Create(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	mc.Cache.DeletePattern(fmt.Sprintf("menu:%d:*", restaurantID))
	utils.InfoLogger.Printf("Menu item %q created for restaurant %d", item.Name, restaurantID)
	utils.RespondJSON(c, http.StatusCreated, "Menu item created", item)
}

// UpdateMenuItem edits an item and invalidates the tenant's menu cache.
func (mc *MenuController) UpdateMenuItem(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("item_id"), 10, 32)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	restaurantID := c.GetUint("restaurantID")
	var item models.MenuItem
	if err := mc.DB.Where("restaurant_id = ?", restaurantID).First(&item, uint(itemID)).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var req menuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item.Name = req.Name
	item.Description = req.Description
	item.Category = req.Category
	item.Price = req.Price
	item.Photo = req.Photo
	item.Options = req.Options
	if req.Available != nil {
		item.Available = *req.Available
	}
	if req.ETA > 0 {
		item.ETA = req.ETA
	}

	if err := mc.DB.Save(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	mc.Cache.DeletePattern(fmt.Sprintf("menu:%d:*", restaurantID))
	utils.RespondJSON(c, http.StatusOK, "Menu item updated", item)
}
