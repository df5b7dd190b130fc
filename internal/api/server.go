package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/pbaille/neuroassist/internal/domain"
	"github.com/pbaille/neuroassist/internal/logging"
	"github.com/pbaille/neuroassist/internal/monitor"
	"github.com/pbaille/neuroassist/internal/onboarding"
	"github.com/pbaille/neuroassist/internal/store"
)

// Options configures the HTTP server
type Options struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer
	// ServiceName enables otelgin request tracing when set.
	ServiceName string
}

// Server handles HTTP requests for the monitoring API
type Server struct {
	store   *store.Store
	monitor *monitor.Service
	log     *zap.Logger
	opts    Options
	engine  *gin.Engine
}

// New creates a new API server
func New(s *store.Store, m *monitor.Service, opts Options) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	srv := &Server{
		store:   s,
		monitor: m,
		log:     logging.OrNop(opts.Logger).Named("api"),
		opts:    opts,
	}
	srv.engine = srv.routes()
	return srv
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	if s.opts.ServiceName != "" {
		r.Use(otelgin.Middleware(s.opts.ServiceName))
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins: s.opts.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}))
	r.Use(s.requestLogger())

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		// Users
		api.POST("/users", s.createUser)
		api.GET("/users", s.listUsers)
		api.GET("/users/:userId", s.getUser)
		api.POST("/login", s.login)

		// Onboarding
		api.POST("/baseline", s.createBaseline)
		api.GET("/baseline/:userId", s.getBaseline)

		// Ingestion
		api.POST("/routine-log", s.addRoutineLog)
		api.GET("/routine-log/:userId", s.listRoutineLogs)
		api.POST("/cognitive-test", s.addCognitiveTest)
		api.GET("/cognitive-test/:userId", s.listCognitiveTests)
		api.POST("/functional-task", s.addFunctionalTask)
		api.GET("/functional-task/:userId", s.listFunctionalTasks)

		// Scoring
		api.GET("/risk-score/:userId", s.riskScore)
		api.GET("/risk-score/:userId/history", s.riskHistory)
		api.GET("/dashboard/:userId", s.dashboard)
		api.GET("/trend/:userId", s.trend)

		// Alerts
		api.GET("/alerts/:userId", s.listAlerts)
		api.PATCH("/alerts/:alertId/read", s.markAlertRead)
	}
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.String("addr", s.opts.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server", zap.Duration("timeout", s.opts.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) health(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// fail maps err to a status code and writes it. Server errors are logged.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidValue), errors.Is(err, onboarding.ErrInvalid):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		logging.WithTrace(c.Request.Context(), s.log).Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err))
		writeError(c, http.StatusInternalServerError, err.Error())
	}
}

// requireUser writes 404 and returns false when the user does not exist
func (s *Server) requireUser(c *gin.Context, userID string) bool {
	if _, err := s.store.GetUser(c.Request.Context(), userID); err != nil {
		s.fail(c, err)
		return false
	}
	return true
}

// queryDays reads the optional days query parameter; 0 means the scoring window
func queryDays(c *gin.Context) (int, bool) {
	v := c.Query("days")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		writeError(c, http.StatusBadRequest, "days must be a positive integer")
		return 0, false
	}
	return n, true
}

// since converts the days query parameter into a cutoff
func (s *Server) since(c *gin.Context) (time.Time, bool) {
	days, ok := queryDays(c)
	if !ok {
		return time.Time{}, false
	}
	return s.monitor.Since(days), true
}

// bindJSON decodes the request body into req and checks its binding tags,
// writing 400 on failure
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// orEmpty keeps JSON lists as [] rather than null
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
