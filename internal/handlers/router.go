package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classforge/assessment-service/internal/config"
	"github.com/classforge/assessment-service/internal/models"
	"github.com/classforge/assessment-service/internal/services"
	"github.com/classforge/assessment-service/internal/validator"
)

type HandlerManager struct {
	assessmentHandler *AssessmentHandler
	attemptHandler    *AttemptHandler
	analyticsHandler  *AnalyticsHandler
	authMiddleware    *CasdoorAuthMiddleware
	serviceManager    services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger *slog.Logger,
	casdoorConfig config.CasdoorConfig,
) *HandlerManager {
	return &HandlerManager{
		assessmentHandler: NewAssessmentHandler(serviceManager.Assessment(), validator, logger),
		attemptHandler:    NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		analyticsHandler:  NewAnalyticsHandler(serviceManager.Analytics(), serviceManager.Export(), logger),
		authMiddleware:    NewCasdoorAuthMiddleware(casdoorConfig),
		serviceManager:    serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint, no authentication
	router.GET("/health", hm.healthCheck)

	requireEducator := hm.authMiddleware.RequireRoleMiddleware(models.RoleEducator, models.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Assessment routes
		assessments := v1.Group("/assessments")
		{
			// Create/modify assessments, educators and admins only
			assessments.POST("", requireEducator, hm.assessmentHandler.CreateAssessment)
			assessments.PUT("/:id", requireEducator, hm.assessmentHandler.UpdateAssessment)
			assessments.DELETE("/:id", requireEducator, hm.assessmentHandler.DeleteAssessment)
			assessments.POST("/:id/share", requireEducator, hm.assessmentHandler.ShareAssessment)
			assessments.POST("/:id/publish", requireEducator, hm.assessmentHandler.PublishAssessment)
			assessments.POST("/:id/archive", requireEducator, hm.assessmentHandler.ArchiveAssessment)

			// View assessments, all authenticated users
			assessments.GET("", requireEducator, hm.assessmentHandler.ListAssessments)
			assessments.GET("/shared", requireEducator, hm.assessmentHandler.ListSharedAssessments)
			assessments.GET("/:id", hm.assessmentHandler.GetAssessment)

			// Attempt listing, analytics and export, educators and admins only
			assessments.GET("/:id/attempts", requireEducator, hm.attemptHandler.ListAttemptsByAssessment)
			assessments.GET("/:id/analytics", requireEducator, hm.analyticsHandler.GetAnalytics)
			assessments.POST("/:id/analytics/refresh", requireEducator, hm.analyticsHandler.RefreshAnalytics)
			assessments.GET("/:id/export", requireEducator, hm.analyticsHandler.ExportResults)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("", hm.attemptHandler.ListMyAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/responses", hm.attemptHandler.SubmitResponse)
			attempts.POST("/:id/complete", hm.attemptHandler.CompleteAttempt)
			attempts.POST("/:id/abandon", hm.attemptHandler.AbandonAttempt)
			attempts.POST("/:id/grade", requireEducator, hm.attemptHandler.GradeResponse)
		}
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
