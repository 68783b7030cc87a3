package api

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/rohankatakam/repolens/internal/aggregator"
	apperrors "github.com/rohankatakam/repolens/internal/errors"
	"github.com/rohankatakam/repolens/internal/logging"
)

const (
	HeaderCache    = "X-Cache"
	HeaderCacheAge = "X-Cache-Age"

	statsTypeCodeFrequency = "codeFrequency"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error        string `json:"error"`
	RequiresAuth bool   `json:"requiresAuth,omitempty"`
}

// AnalyzeRequest is the body of POST /api/repo
type AnalyzeRequest struct {
	RepoURL string `json:"repoUrl"`
}

// StatsRequest is the body of POST /api/repo/stats
type StatsRequest struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Type  string `json:"type"`
}

// Handler serves the analysis endpoints
type Handler struct {
	svc     Service
	timeout time.Duration
	logger  *slog.Logger
}

// NewHandler creates a handler; timeout bounds each analysis (0 = none)
func NewHandler(svc Service, timeout time.Duration) *Handler {
	return &Handler{
		svc:     svc,
		timeout: timeout,
		logger:  logging.Component("api"),
	}
}

// AnalyzeRepo handles POST /api/repo
func (h *Handler) AnalyzeRepo(c fiber.Ctx) error {
	var req AnalyzeRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	credential := bearerToken(c)
	report, status, err := h.svc.Analyze(ctx, credential, req.RepoURL)
	if err != nil {
		return h.writeError(c, err, "Failed to analyze repository")
	}

	if credential == "" {
		setCacheHeaders(c, status)
	}
	return c.JSON(report)
}

// RepoStats handles POST /api/repo/stats; only type "codeFrequency" is supported
func (h *Handler) RepoStats(c fiber.Ctx) error {
	var req StatsRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Owner) == "" || strings.TrimSpace(req.Repo) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "Owner and repo are required"})
	}
	if req.Type != statsTypeCodeFrequency {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "Invalid type"})
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	credential := bearerToken(c)
	result, status, err := h.svc.CodeFrequency(ctx, credential, req.Owner+"/"+req.Repo)
	if err != nil {
		return h.writeError(c, err, "Failed to fetch stats")
	}

	if credential == "" {
		setCacheHeaders(c, status)
	}
	return c.JSON(result)
}

// UserRepos handles GET /api/user/repos
func (h *Handler) UserRepos(c fiber.Ctx) error {
	credential := bearerToken(c)
	if credential == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "Not authenticated", RequiresAuth: true})
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	repos, err := h.svc.UserRepos(ctx, credential)
	if err != nil {
		if apperrors.RequiresAuth(err) {
			return h.writeError(c, err, "Failed to fetch repositories")
		}
		h.logger.Error("failed to fetch user repos", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "Failed to fetch repositories"})
	}

	return c.JSON(fiber.Map{"repos": repos})
}

// Health handles GET /health
func (h *Handler) Health(c fiber.Ctx) error {
	reports, stats := h.svc.CacheSizes()
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "repolens",
		"cache": fiber.Map{
			"reports":       reports,
			"codeFrequency": stats,
		},
	})
}

func (h *Handler) requestContext(c fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(c.Context(), h.timeout)
	}
	return context.WithCancel(c.Context())
}

// writeError maps classified errors to 401 (sign-in may help) or 400, and
// anything unclassified to 500 with a generic message
func (h *Handler) writeError(c fiber.Ctx, err error, fallback string) error {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperrors.KindInternal {
		h.logger.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: fallback})
	}

	code := fiber.StatusBadRequest
	if appErr.RequiresAuth() {
		code = fiber.StatusUnauthorized
	}

	h.logger.Info("request rejected",
		"path", c.Path(),
		"kind", appErr.Kind.String(),
		"status", code)
	return c.Status(code).JSON(ErrorResponse{
		Error:        appErr.Message,
		RequiresAuth: appErr.RequiresAuth(),
	})
}

func setCacheHeaders(c fiber.Ctx, status aggregator.CacheStatus) {
	if status.Hit {
		c.Set(HeaderCache, "HIT")
		c.Set(HeaderCacheAge, strconv.Itoa(int(status.Age/time.Second)))
		return
	}
	c.Set(HeaderCache, "MISS")
}

// bearerToken extracts the credential from "Authorization: Bearer <token>"
func bearerToken(c fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	const prefix = "bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}
