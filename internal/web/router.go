package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Skufu/PulseNet/internal/auth"
	"github.com/Skufu/PulseNet/internal/chat"
	"github.com/Skufu/PulseNet/internal/diagnosis"
	"github.com/Skufu/PulseNet/internal/intake"
	"github.com/Skufu/PulseNet/internal/render"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RecordsFetcher lists a doctor's past diagnoses.
type RecordsFetcher interface {
	DoctorRecords(ctx context.Context, email string) ([]diagnosis.HistoryRecord, error)
}

type Deps struct {
	Gate     *auth.Gate
	Drafts   intake.Persister
	Health   HealthChecker
	Analyzer diagnosis.Analyzer
	Records  RecordsFetcher
	Replier  chat.Replier
	Logger   zerolog.Logger

	CORSOrigins     []string
	CookieSecure    bool
	DefaultLanguage string
}

type handler struct {
	deps       Deps
	dashboards *Registry
	logger     zerolog.Logger
}

// NewRouter builds the console. The returned func detaches it from the auth
// gate and should run on shutdown.
func NewRouter(deps Deps) (*gin.Engine, func(), error) {
	tmpl, err := render.Load()
	if err != nil {
		return nil, nil, err
	}
	if deps.Gate == nil || deps.Analyzer == nil {
		return nil, nil, fmt.Errorf("web: gate and analyzer are required")
	}

	h := &handler{
		deps:       deps,
		dashboards: NewRegistry(deps.Drafts, deps.Analyzer, deps.Replier, deps.DefaultLanguage, deps.Logger),
		logger:     deps.Logger,
	}
	unsubscribe := deps.Gate.Subscribe(h.onAuthEvent)

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(
		RequestID(),
		Logger(deps.Logger),
		Recovery(deps.Logger),
		SecurityHeaders(),
		limitBodySize(1<<20), // 1MB max body
		corsMiddleware(deps.CORSOrigins),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/healthz", "/readyz"})),
	)

	router.StaticFS("/static", http.FS(render.Static()))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", h.readyz)

	router.GET("/", h.landing)
	router.GET("/auth", h.authPage)
	router.POST("/auth/signin", h.signIn)
	router.POST("/auth/signup", h.signUp)
	router.POST("/auth/signout", h.signOut)

	for _, kind := range []string{"privacy", "guidelines", "terms"} {
		router.GET("/"+kind, h.legal(kind))
	}
	router.GET("/contact", h.contactPage)
	router.POST("/contact", h.contactSubmit)

	dash := router.Group("/dashboard", h.requireSession)
	{
		dash.GET("", h.dashboard)
		dash.GET("/history", h.history)
		dash.POST("/draft", h.saveDraft)
		dash.POST("/diagnose", h.diagnose)
		dash.POST("/new", h.newPatient)
		dash.POST("/language", h.setLanguage)
		dash.POST("/chat", h.sendChat)
	}

	router.NoRoute(func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/")
	})

	return router, unsubscribe, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func (h *handler) onAuthEvent(e auth.Event) {
	if e.Kind == auth.SignedOut && e.Session != nil {
		if h.dashboards.Drop(e.Session.UserID) {
			h.logger.Debug().Str("doctor_id", e.Session.UserID).Msg("dashboard dropped")
		} else {
			h.logger.Debug().Str("doctor_id", e.Session.UserID).Msg("dashboard kept")
		}
	}
}

func (h *handler) readyz(c *gin.Context) {
	if h.deps.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "drafts": "memory"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.deps.Health.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"drafts": fmt.Sprintf("unhealthy: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"drafts": "ok",
	})
}
