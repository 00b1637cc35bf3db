// Package http exposes the tree lifecycle over a small JSON API. Mutations
// run through the usecase layer; reads go straight to the repositories.
package http

import (
	"time"

	"notetree/internal/config"
	"notetree/internal/domain"
	"notetree/internal/infra/authority"
	"notetree/internal/infra/engine"
	"notetree/internal/infra/eventlog"
	"notetree/internal/infra/ratelimit"
	"notetree/internal/infra/treemem"
	"notetree/internal/logging"
	"notetree/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg config.Config
	r   *gin.Engine

	createUC *usecase.CreateTree
	appendUC *usecase.AppendMessage
	updateUC *usecase.UpdateMessage

	trees  domain.TreeRepository
	events domain.NoteEventRepository
	policy domain.PolicyEngine

	authenticator Authenticator
	authInitErr   error

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

// NewServer wires the default single-process stack: the in-process engine,
// the in-memory registry, and the in-memory event log.
func NewServer(cfg config.Config) *Server {
	registry := engine.NewRegistry()
	trees := treemem.New()
	events := eventlog.New()
	locks := usecase.NewTreeLocks()
	return NewServerWithDeps(cfg, ServerDeps{
		Create: &usecase.CreateTree{
			Engine:    registry,
			Trees:     trees,
			Authority: authority.Derive,
		},
		Append: &usecase.AppendMessage{
			Engine:    registry,
			Trees:     trees,
			Events:    events,
			Authority: authority.Derive,
			Locks:     locks,
		},
		Update: &usecase.UpdateMessage{
			Engine:    registry,
			Trees:     trees,
			Events:    events,
			Authority: authority.Derive,
			Locks:     locks,
		},
		Trees:  trees,
		Events: events,
	})
}

type ServerDeps struct {
	Create *usecase.CreateTree
	Append *usecase.AppendMessage
	Update *usecase.UpdateMessage

	Trees  domain.TreeRepository
	Events domain.NoteEventRepository
	Policy domain.PolicyEngine

	Authenticator Authenticator
	RateLimiter   domain.RateLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	s := &Server{
		cfg:           cfg,
		r:             r,
		createUC:      deps.Create,
		appendUC:      deps.Append,
		updateUC:      deps.Update,
		trees:         deps.Trees,
		events:        deps.Events,
		policy:        deps.Policy,
		authenticator: deps.Authenticator,
	}
	s.initAuth()
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initAuth() {
	switch s.cfg.AuthMode {
	case "", "none":
	case "static":
		if s.authenticator != nil {
			return
		}
		authenticator, err := NewStaticAuthenticator(s.cfg.APIKeys)
		if err != nil {
			s.authInitErr = err
			return
		}
		s.authenticator = authenticator
	default:
		s.authInitErr = errUnsupportedAuthMode
	}
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil); err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	if s.cfg.RateLimitWindowSeconds > 0 {
		s.rateLimitWindow = time.Duration(s.cfg.RateLimitWindowSeconds) * time.Second
	}
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/trees", s.handleCreateTree)
		v1.GET("/trees/:tree_id", s.handleGetTree)
		v1.GET("/trees/:tree_id/events", s.handleListEvents)
		v1.POST("/trees/:tree_id/messages", s.handleAppendMessage)
		v1.PUT("/trees/:tree_id/messages/:index", s.handleUpdateMessage)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log := logging.Logger()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() *gin.Engine {
	return s.r
}

func (s *Server) Run() error {
	if s.authInitErr != nil {
		return s.authInitErr
	}
	return s.r.Run(s.cfg.HTTPAddr)
}
