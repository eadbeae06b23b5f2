package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/Gunvolt24/dms_events/internal/ports"
	"github.com/Gunvolt24/dms_events/internal/usecase"
	"github.com/Gunvolt24/dms_events/pkg/httpx"
)

const (
	defaultUsersLimit = 20
	maxUsersLimit     = 100
)

// Publisher — публикация события с ожиданием отчёта брокера.
type Publisher interface {
	Publish(ctx context.Context, req domain.ProducerRequest) (domain.DeliveryReport, error)
}

// Handler — HTTP-слой поверх сервиса профилей и продюсера.
type Handler struct {
	users     ports.UserReadService
	log       ports.Logger
	timeout   time.Duration
	publisher Publisher
	topics    map[string]struct{}
	ready     func(ctx context.Context) error
}

// Option — настройка Handler.
type Option func(*Handler)

// WithPublisher — включает POST /events/:topic для перечисленных топиков.
func WithPublisher(p Publisher, allowedTopics ...string) Option {
	return func(h *Handler) {
		h.publisher = p
		for _, t := range allowedTopics {
			h.topics[t] = struct{}{}
		}
	}
}

// WithReadiness — проверка готовности для /healthz (например, ping БД).
func WithReadiness(check func(ctx context.Context) error) Option {
	return func(h *Handler) { h.ready = check }
}

// NewHandler — timeout <= 0 означает «без собственного таймаута на запрос».
func NewHandler(users ports.UserReadService, log ports.Logger, timeout time.Duration, opts ...Option) *Handler {
	h := &Handler{
		users:   users,
		log:     log,
		timeout: timeout,
		topics:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter — gin-роутер со сквозными middleware: recovery, трассировка, request id, лог.
func NewRouter(h *Handler, serviceName string) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	if serviceName != "" {
		r.Use(otelgin.Middleware(serviceName))
	}
	r.Use(httpx.RequestIDMiddleware())
	r.Use(httpx.RequestLogger(h.log))

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/healthz", h.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/users", h.listRecentUsers)
	r.GET("/users/:id", h.getUserByID)
	r.POST("/events/:topic", h.publishEvent)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	return r
}

func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return c.Request.Context(), func() {}
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func (h *Handler) healthz(c *gin.Context) {
	if h.ready == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.ready(ctx); err != nil {
		h.log.Warnw(ctx, "readiness check failed", "error", err.Error())
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getUserByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	user, err := h.users.GetUser(ctx, id)
	if err != nil {
		h.log.Errorw(ctx, "get user failed", "user_id", id.String(), "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) listRecentUsers(c *gin.Context) {
	limit := httpx.ParseLimit(c, defaultUsersLimit, maxUsersLimit)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	users, err := h.users.RecentUsers(ctx, limit)
	if err != nil {
		h.log.Errorw(ctx, "recent users failed", "limit", limit, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if users == nil {
		users = []*domain.UserProfile{}
	}
	c.JSON(http.StatusOK, users)
}

type publishRequest struct {
	Key       string            `json:"key"`
	Partition *int              `json:"partition" binding:"omitempty,min=0"`
	Value     map[string]any    `json:"value" binding:"required"`
	Headers   map[string]string `json:"headers"`
}

type publishResponse struct {
	Topic     string `json:"topic"`
	Partition int    `json:"partition"`
	Offset    int64  `json:"offset"`
	Key       string `json:"key,omitempty"`
}

func (h *Handler) publishEvent(c *gin.Context) {
	if h.publisher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "publishing is disabled"})
		return
	}
	topic := c.Param("topic")
	if _, ok := h.topics[topic]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown topic"})
		return
	}

	var body publishRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := domain.ProducerRequest{
		Topic:     topic,
		Value:     body.Value,
		Partition: body.Partition,
		Headers:   body.Headers,
	}
	if body.Key != "" {
		req.Key = body.Key
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	report, err := h.publisher.Publish(ctx, req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, publishResponse{
			Topic:     report.Topic,
			Partition: report.Partition,
			Offset:    report.Offset,
			Key:       string(report.Key),
		})
	case errors.Is(err, usecase.ErrProducerNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "publishing is disabled"})
	case errors.Is(err, domain.ErrBroker):
		h.log.Warnw(ctx, "event not delivered", "topic", topic, "key", body.Key, "error", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "delivery timeout"})
	default:
		h.log.Errorw(ctx, "publish failed", "topic", topic, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
