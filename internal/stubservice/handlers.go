// Package stubservice is a local stand-in for the forgery detection service. It honours the same
// wire contract: POST / with {"baseString": ...} answers {"result": ...}.
package stubservice

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/forgery-check/internal/classifier"
	"github.com/example/forgery-check/internal/logging"
)

// MaxBodySize bounds the JSON body; base64 inflates images by a third.
const MaxBodySize = 20 << 20

// NoImageLabel is answered when baseString is null.
const NoImageLabel = "no image provided"

// Service holds the stub's behaviour.
type Service struct {
	verdict Verdict
	delay   time.Duration
	logger  *zap.Logger
}

// NewService builds a stub answering with verdict after delay.
func NewService(verdict Verdict, delay time.Duration, logger *zap.Logger) *Service {
	if verdict == nil {
		verdict = HashVerdict{}
	}
	return &Service{verdict: verdict, delay: delay, logger: logger.Named("stubservice")}
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, svc *Service) {
	router.Use(RequestIDMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/", svc.classify)
}

func (s *Service) classify(c *gin.Context) {
	requestID, _ := GetRequestID(c.Request.Context())
	opLogger := logging.WithOperation(s.logger, "stubservice.classify", requestID)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodySize)

	var req classifier.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, failure("request body too large"))
			return
		}
		opLogger.Warn("rejecting malformed body", zap.Error(err))
		c.JSON(http.StatusBadRequest, failure("body must be a JSON object with a baseString field"))
		return
	}

	if !s.wait(c) {
		return
	}

	if req.BaseString == nil {
		opLogger.Info("request without image")
		c.JSON(http.StatusOK, gin.H{"result": NoImageLabel, "request_id": requestID})
		return
	}

	data, declared, err := decodeBaseString(*req.BaseString)
	if err != nil {
		opLogger.Warn("rejecting undecodable image", zap.Error(err), logging.Payload("baseString", req.BaseString))
		c.JSON(http.StatusUnprocessableEntity, failure("invalid image: " + err.Error()))
		return
	}

	detected := mimetype.Detect(data).String()
	if !strings.HasPrefix(detected, "image/") {
		opLogger.Warn("rejecting non-image payload", zap.String("detected", detected), zap.String("declared", declared))
		c.JSON(http.StatusUnsupportedMediaType, failure("payload is not an image: " + detected))
		return
	}

	label := s.verdict.Label(data, detected)
	opLogger.Info("classified image",
		zap.String("result", label),
		zap.String("mime_type", detected),
		zap.Int("bytes", len(data)),
	)
	c.JSON(http.StatusOK, gin.H{"result": label, "request_id": requestID})
}

// failure answers with the reason in both fields, so a client that only reads result still shows it.
func failure(reason string) gin.H {
	return gin.H{"result": reason, "error": reason}
}

// wait applies the configured latency. It reports false when the client went away.
func (s *Service) wait(c *gin.Context) bool {
	if s.delay <= 0 {
		return true
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.Request.Context().Done():
		c.Abort()
		return false
	}
}
