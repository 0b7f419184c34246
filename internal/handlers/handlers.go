package handlers

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brownie44l1/freshness-api/internal/logging"
	"github.com/Brownie44l1/freshness-api/internal/model"
	"github.com/Brownie44l1/freshness-api/internal/pipeline"
)

// MaxUploadSize is the default cap on a multipart upload.
const MaxUploadSize = 10 << 20

const requestIDHeader = "X-Request-ID"

type Handler struct {
	orchestrator *pipeline.Orchestrator
	logger       *zap.Logger
	maxUpload    int64
}

func NewHandler(orchestrator *pipeline.Orchestrator, logger *zap.Logger, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = MaxUploadSize
	}
	return &Handler{
		orchestrator: orchestrator,
		logger:       logger.Named("handlers"),
		maxUpload:    maxUpload,
	}
}

// RouteOptions configures the optional parts of the router.
type RouteOptions struct {
	// Auth guards /predict when set.
	Auth gin.HandlerFunc
	// FrontendPath is served for unmatched GETs when the directory exists.
	FrontendPath string
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, h *Handler, opts RouteOptions) {
	router.MaxMultipartMemory = h.maxUpload
	router.Use(RequestID(), AccessLog(h.logger), CORS())

	router.GET("/health", h.Health)

	predict := []gin.HandlerFunc{h.Predict}
	if opts.Auth != nil {
		predict = append([]gin.HandlerFunc{opts.Auth}, predict...)
	}
	router.POST("/predict", predict...)

	if opts.FrontendPath == "" {
		return
	}
	if info, err := os.Stat(opts.FrontendPath); err != nil || !info.IsDir() {
		h.logger.Warn("frontend directory not found, running in API-only mode",
			zap.String("frontend_path", opts.FrontendPath))
		return
	}
	h.logger.Info("frontend mounted", zap.String("frontend_path", opts.FrontendPath))
	files := http.FileServer(http.Dir(opts.FrontendPath))
	router.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "online",
		Message:     "Fruit Freshness Backend is Running",
		ModelLoaded: h.orchestrator.Ready(),
	})
}

// Predict scores an uploaded image and returns score, class and heatmap.
func (h *Handler) Predict(c *gin.Context) {
	requestID := logging.RequestIDFromContext(c.Request.Context())
	opLogger := logging.WithOperation(h.logger, "handlers.predict", requestID)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	file, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		file, err = c.FormFile("image")
	}
	if err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "upload exceeds size limit", RequestID: requestID})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "No image file provided. Use 'file' as the form field name",
			RequestID: requestID,
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unable to open image", RequestID: requestID})
		return
	}
	defer src.Close()

	opLogger.Info("received file", zap.String("filename", file.Filename), zap.Int64("size", file.Size))

	result, err := h.orchestrator.PredictEncoded(c.Request.Context(), src, true)
	if err != nil {
		opLogger.Error("prediction failed", logging.ErrorFields(err)...)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: errorMessage(err), RequestID: requestID})
		return
	}

	c.JSON(http.StatusOK, PredictionResponse{
		Score:     result.Score,
		Class:     result.Category.String(),
		Heatmap:   result.Heatmap.DataURI,
		RequestID: requestID,
	})
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	// some multipart paths flatten the error to text
	return strings.Contains(err.Error(), "request body too large")
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrUnavailable):
		return "model unavailable"
	case errors.Is(err, pipeline.ErrDecode):
		return "Invalid image format. Supported: JPEG, PNG, GIF, BMP, TIFF, WebP"
	default:
		return err.Error()
	}
}

// RequestID tags each request with an id taken from X-Request-ID or freshly generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logging.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", logging.RequestIDFromContext(c.Request.Context())),
		)
	}
}

// CORS allows any origin, as the browser client may be served from file://.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
