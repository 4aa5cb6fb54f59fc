package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MechDevelopment/mrbeam-backend/internal/domain"
	"github.com/MechDevelopment/mrbeam-backend/internal/service"
)

type Handler struct {
	service       service.PredictionService
	maxUploadSize int64
	log           *zap.Logger
}

func NewHandler(service service.PredictionService, maxUploadSize int64, log *zap.Logger) *Handler {
	return &Handler{
		service:       service,
		maxUploadSize: maxUploadSize,
		log:           log.Named("handler"),
	}
}

func (h *Handler) Register(router gin.IRouter) {
	router.GET("/health", h.HealthCheck)
	router.POST("/predict", h.Predict)
	router.POST("/correct", h.Correct)
	router.GET("/predictions/:uuid", h.GetPrediction)
	router.GET("/predictions/:uuid/image", h.GetImage)
}

func (h *Handler) Predict(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}

	if file.Size > h.maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		return
	}

	src, err := file.Open()
	if err != nil {
		h.log.Error("Failed to open file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process file"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		h.log.Error("Failed to read file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}

	prediction, err := h.service.Predict(c.Request.Context(), service.Upload{
		Data:        data,
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Save:        parseSave(c.PostForm("save")),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, prediction)
}

func (h *Handler) Correct(c *gin.Context) {
	var req domain.Prediction
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid correction body: " + err.Error()})
		return
	}

	if err := h.service.Correct(c.Request.Context(), req.UUID, req.Data); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (h *Handler) GetPrediction(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *Handler) GetImage(c *gin.Context) {
	body, contentType, err := h.service.Image(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer body.Close()

	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		validationErr *domain.ValidationError
		inferenceErr  *domain.InferenceError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Reason})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Prediction not found"})
	case errors.As(err, &inferenceErr):
		h.log.Error("Inference service unavailable",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Inference service unavailable"})
	default:
		h.log.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// parseSave treats a missing or unparsable flag as a request to archive.
func parseSave(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	save, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return save
}
