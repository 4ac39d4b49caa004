package handler

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/catalog"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/service"
	pkglog "github.com/weiawesome/wes-io-live/commentary-service/pkg/log"
	"github.com/weiawesome/wes-io-live/commentary-service/pkg/response"
	"github.com/weiawesome/wes-io-live/commentary-service/pkg/storage"
)

// Audio access modes.
const (
	AudioModeProxy    = "proxy"
	AudioModeRedirect = "redirect"
)

// GameCatalog is the read side of the event catalog.
type GameCatalog interface {
	List(ctx context.Context, league string) ([]catalog.Game, error)
	Get(ctx context.Context, id string) (*catalog.Game, error)
}

// AudioOptions configures audio retrieval.
type AudioOptions struct {
	Prefix        string
	Mode          string
	PresignExpiry time.Duration
}

// Handler serves the REST routes: audio, status, health and catalog.
type Handler struct {
	service service.CommentaryService
	store   storage.Storage
	games   GameCatalog
	audio   AudioOptions
	version string
}

// NewHandler creates a new HTTP handler. A nil catalog answers catalog routes
// with 503.
func NewHandler(svc service.CommentaryService, store storage.Storage, games GameCatalog, audio AudioOptions, version string) *Handler {
	if audio.Prefix == "" {
		audio.Prefix = "audio"
	}
	if audio.Mode == "" {
		audio.Mode = AudioModeProxy
	}
	if audio.PresignExpiry <= 0 {
		audio.PresignExpiry = 15 * time.Minute
	}
	return &Handler{
		service: svc,
		store:   store,
		games:   games,
		audio:   audio,
		version: version,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.GET("/status", h.Status)
		api.GET("/audio/:filename", h.GetAudio)

		games := api.Group("/v1/games")
		{
			games.GET("", h.ListGames)
			games.GET("/:id", h.GetGame)
		}
	}
}

// Health returns the service health status.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "commentary-service",
		"version": h.version,
	})
}

// Status reports connected viewers and active sessions.
func (h *Handler) Status(c *gin.Context) {
	response.Success(c, h.service.Status(c.Request.Context()))
}

// GetAudio serves a stored audio artifact, either by streaming it or by
// redirecting to a presigned URL.
func (h *Handler) GetAudio(c *gin.Context) {
	ctx := c.Request.Context()

	filename := c.Param("filename")
	if filename == "" || strings.Contains(filename, "/") || strings.Contains(filename, "..") {
		response.Fail(c, response.CodeNotFound, "audio not found")
		return
	}
	key := path.Join(h.audio.Prefix, filename)

	if h.audio.Mode == AudioModeRedirect {
		url, err := h.store.GetURL(ctx, key, h.audio.PresignExpiry)
		if err != nil {
			h.audioError(c, key, err)
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, url)
		return
	}

	fi, err := h.store.Stat(ctx, key)
	if err != nil {
		h.audioError(c, key, err)
		return
	}
	rc, err := h.store.Read(ctx, key)
	if err != nil {
		h.audioError(c, key, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, fi.Size, "audio/wav", rc, map[string]string{
		"Cache-Control": "public, max-age=3600",
	})
}

func (h *Handler) audioError(c *gin.Context, key string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		response.Fail(c, response.CodeNotFound, "audio not found")
		return
	}
	l := pkglog.Ctx(c.Request.Context())
	l.Error().Err(err).Str("key", key).Msg("failed to read audio")
	response.Fail(c, response.CodeInternal, "failed to read audio")
}

// ListGames lists catalog games, optionally filtered by ?league=.
func (h *Handler) ListGames(c *gin.Context) {
	if h.games == nil {
		response.Fail(c, response.CodeUnavailable, "catalog disabled")
		return
	}
	ctx := c.Request.Context()

	games, err := h.games.List(ctx, c.Query("league"))
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list games")
		response.Fail(c, response.CodeInternal, "failed to list games")
		return
	}
	response.Success(c, games)
}

// GetGame retrieves one catalog game.
func (h *Handler) GetGame(c *gin.Context) {
	if h.games == nil {
		response.Fail(c, response.CodeUnavailable, "catalog disabled")
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	game, err := h.games.Get(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrGameNotFound) {
			response.Fail(c, response.CodeNotFound, "game not found")
			return
		}
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).Str(pkglog.FieldEventID, id).Msg("failed to get game")
		response.Fail(c, response.CodeInternal, "failed to get game")
		return
	}
	response.Success(c, game)
}
