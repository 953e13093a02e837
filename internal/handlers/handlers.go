package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/trashvision/internal/auth"
	"github.com/example/trashvision/internal/usecase"
)

// RegisterRoutes wires the HTTP handlers to the Gin router. Everything except
// the health probe sits behind the auth middleware.
func RegisterRoutes(router *gin.Engine, uc *usecase.ClassifyUseCase, authMiddleware gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := router.Group("/", authMiddleware)

	protected.POST("/predict", func(c *gin.Context) {
		userID, ok := auth.GetUserID(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		file, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}
		if file.Size > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
			return
		}
		if contentType := file.Header.Get("Content-Type"); contentType != "" {
			if _, ok := allowedImageTypes[contentType]; !ok {
				c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported image type"})
				return
			}
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(io.LimitReader(src, MaxUploadSize+1))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
			return
		}
		if len(data) > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
			return
		}

		requestID, result, err := uc.ClassifyImage(c.Request.Context(), userID, data)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "classification could not be completed"})
			return
		}

		// Classifier outages are already folded into the result, so this path
		// always answers 200 with a well formed body.
		c.JSON(http.StatusOK, gin.H{
			"request_id":      requestID,
			"detected_items":  result.DetectedItems,
			"recommendations": result.Recommendations,
			"source":          result.Source,
			"error":           result.Error,
		})
	})

	protected.GET("/result/:id", func(c *gin.Context) {
		requestID := c.Param("id")
		if requestID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
			return
		}
		userID, ok := auth.GetUserID(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		log, result, err := uc.GetResult(c.Request.Context(), userID, requestID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id":      log.RequestID,
			"user_id":         log.UserID,
			"detected_items":  result.DetectedItems,
			"recommendations": result.Recommendations,
			"source":          result.Source,
			"error":           result.Error,
			"created_at":      log.CreatedAt,
		})
	})

	protected.GET("/metrics", func(c *gin.Context) {
		summary, err := uc.GetMetricsSummary(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "metrics unavailable"})
			return
		}
		c.JSON(http.StatusOK, summary)
	})
}
