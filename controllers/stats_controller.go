package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/avolkov/inkwell/models"
	"github.com/avolkov/inkwell/utils"
)

// StatsController provides aggregate site statistics.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

type statsPayload struct {
	UserCount  int64 `json:"user_count"`
	PostCount  int64 `json:"post_count"`
	GroupCount int64 `json:"group_count"`
	ViewsToday int64 `json:"views_today"`
}

// GetStats returns user, post and group counts plus today's page views.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var payload statsPayload
	if utils.CacheGetJSON("cache:stats", &payload) {
		utils.Success(ctx, payload)
		return
	}

	// Fall back to zero per counter instead of failing the endpoint.
	if err := s.db.Model(&models.User{}).Count(&payload.UserCount).Error; err != nil {
		payload.UserCount = 0
	}
	if err := s.db.Model(&models.Post{}).Count(&payload.PostCount).Error; err != nil {
		payload.PostCount = 0
	}
	if err := s.db.Model(&models.Group{}).Count(&payload.GroupCount).Error; err != nil {
		payload.GroupCount = 0
	}

	// Compare against the same local-midnight value the page view recorder
	// writes so the lookup matches on every backend.
	now := time.Now().In(time.Local)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := s.db.Model(&models.PageView{}).
		Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&payload.ViewsToday).Error; err != nil {
		payload.ViewsToday = 0
	}

	utils.CacheSetJSON("cache:stats", payload, 5*time.Minute)
	utils.Success(ctx, payload)
}
