package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"danmu/internal/catalog"
	"danmu/internal/danmaku"
	"danmu/internal/engine"
	"danmu/internal/logging"
	"danmu/internal/services"
)

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-Id"

// Engine is the subset of engine.Engine the server needs.
type Engine interface {
	Search(ctx context.Context, keyword string) ([]*catalog.Entry, error)
	Episodes(ctx context.Context, entryID int64) (*catalog.Entry, error)
	CommentsByEpisodeID(ctx context.Context, episodeID int64) ([]danmaku.Comment, error)
	CommentsByLocator(ctx context.Context, loc string) ([]danmaku.Comment, error)
	Providers() []string
	Stats() engine.Stats
}

var _ Engine = (*engine.Engine)(nil)

// Server routes HTTP requests to an Engine.
type Server struct {
	engine Engine
	token  string
	logger *slog.Logger
	router *gin.Engine
}

// NewServer builds the router. An empty token disables authentication.
func NewServer(eng Engine, token string, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine: eng,
		token:  strings.TrimSpace(token),
		logger: logging.NewComponentLogger(logger, "api"),
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestID(), s.accessLog())
	router.GET("/healthz", s.health)

	v2 := router.Group("/api/v2")
	v2.Use(s.authenticate())
	v2.GET("/search/anime", s.search)
	v2.GET("/bangumi/:animeId", s.bangumi)
	v2.GET("/comment/:episodeId", s.commentByID)
	v2.GET("/comment", s.commentByLocator)

	s.router = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", logging.String("bind", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("api stopped")
	return nil
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logging.WithContext(c.Request.Context(), s.logger).Debug("request served",
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("elapsed", time.Since(started)),
		)
	}
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.token == "" {
			c.Next()
			return
		}
		presented := c.Query("token")
		if h := c.GetHeader("Authorization"); strings.HasPrefix(strings.ToLower(h), "bearer ") {
			presented = strings.TrimSpace(h[len("Bearer "):])
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(s.token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{
				ErrorCode:    http.StatusUnauthorized,
				ErrorMessage: "invalid or missing token",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	stats := s.engine.Stats()
	c.JSON(http.StatusOK, HealthResponse{
		Status:         "ok",
		Providers:      s.engine.Providers(),
		CatalogEntries: stats.CatalogEntries,
		CachedSearches: stats.CachedSearches,
		CachedComments: stats.CachedComments,
		PendingFetches: stats.PendingFetches,
	})
}

func (s *Server) search(c *gin.Context) {
	keyword := c.Query("keyword")
	if strings.TrimSpace(keyword) == "" {
		keyword = c.Query("anime")
	}
	entries, err := s.engine.Search(c.Request.Context(), keyword)
	if err != nil {
		s.fail(c, "search", err)
		return
	}
	c.JSON(http.StatusOK, SearchResponse{Envelope: Envelope{Success: true}, Animes: FromEntries(entries)})
}

func (s *Server) bangumi(c *gin.Context) {
	id, ok := s.pathID(c, "animeId")
	if !ok {
		return
	}
	entry, err := s.engine.Episodes(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "bangumi", err)
		return
	}
	c.JSON(http.StatusOK, BangumiResponse{Envelope: Envelope{Success: true}, Bangumi: FromEntry(entry, true)})
}

func (s *Server) commentByID(c *gin.Context) {
	id, ok := s.pathID(c, "episodeId")
	if !ok {
		return
	}
	comments, err := s.engine.CommentsByEpisodeID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, "comment", err)
		return
	}
	c.JSON(http.StatusOK, CommentResponse{Count: len(comments), Comments: comments})
}

func (s *Server) commentByLocator(c *gin.Context) {
	comments, err := s.engine.CommentsByLocator(c.Request.Context(), c.Query("locator"))
	if err != nil {
		s.fail(c, "comment", err)
		return
	}
	c.JSON(http.StatusOK, CommentResponse{Count: len(comments), Comments: comments})
}

func (s *Server) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		s.fail(c, name, services.Wrap(services.ErrValidation, "api", name, "must be a positive integer", err))
		return 0, false
	}
	return id, true
}

func (s *Server) fail(c *gin.Context, operation string, err error) {
	status := services.HTTPStatus(err)
	logger := logging.WithContext(c.Request.Context(), s.logger)
	switch {
	case services.IsCancellation(err):
		logger.Debug("request cancelled", logging.String("operation", operation))
	case status >= http.StatusInternalServerError:
		logging.WarnWithContext(logger, "request failed", "api_request_failed",
			logging.String("operation", operation),
			logging.Int("status", status),
			logging.Error(err),
			logging.String(logging.FieldImpact, "client received an error response"),
		)
	}
	c.AbortWithStatusJSON(status, Envelope{ErrorCode: status, ErrorMessage: err.Error()})
}
