// Package api serves note exports over HTTP: synchronous downloads, background
// export jobs with websocket progress, and the font and background catalogs.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/patrickmn/go-cache"
	secure "github.com/srikrsna/security-headers"

	"github.com/opd-ai/readnotes/notecompiler"
	readnotes "github.com/opd-ai/readnotes/src"
	"github.com/opd-ai/readnotes/srv/exporter"
	"github.com/opd-ai/readnotes/srv/util"
)

const historyCleanupInterval = 10 * time.Minute

// Server is the export HTTP API. Running jobs live in jobs; finished jobs
// move to a cache and are dropped, with their document, after the job TTL.
type Server struct {
	router     chi.Router
	compiler   *notecompiler.NoteCompiler
	cfg        readnotes.ServerConfig
	outputDir  string
	logger     *slog.Logger
	jobs       map[string]*exporter.ExportProgress
	jobsM      sync.RWMutex
	msgHistory map[string]*messageHistory
	historyM   sync.RWMutex
	cache      *cache.Cache

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for requests and jobs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer returns a server exporting with nc and writing job documents to
// outputDir. Close releases its background work.
func NewServer(nc *notecompiler.NoteCompiler, cfg readnotes.ServerConfig, outputDir string, opts ...Option) *Server {
	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		router:     chi.NewRouter(),
		compiler:   nc,
		cfg:        cfg,
		outputDir:  outputDir,
		logger:     slog.Default(),
		jobs:       make(map[string]*exporter.ExportProgress),
		msgHistory: make(map[string]*messageHistory),
		baseCtx:    ctx,
		stop:       stop,
	}
	for _, opt := range opts {
		opt(s)
	}

	ttl := cfg.JobTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s.cache = cache.New(ttl, time.Hour)
	s.cache.OnEvicted(s.evictJob)

	s.setupRoutes()
	s.startCleanup()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close cancels running jobs and waits for them to stop.
func (s *Server) Close() {
	s.stop()
	s.wg.Wait()
}

func (s *Server) startCleanup() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(historyCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.cleanupOrphanHistory()
			case <-s.baseCtx.Done():
				return
			}
		}
	}()
}

// cleanupOrphanHistory drops histories whose job is neither running nor
// cached.
func (s *Server) cleanupOrphanHistory() {
	s.historyM.Lock()
	defer s.historyM.Unlock()
	for jobID := range s.msgHistory {
		if _, ok := s.lookupJob(jobID); !ok {
			delete(s.msgHistory, jobID)
		}
	}
}

// AddMessage appends msg to the job's history.
func (s *Server) AddMessage(jobID string, msg exporter.WSMessage) {
	s.historyM.Lock()
	history, exists := s.msgHistory[jobID]
	if !exists {
		history = newMessageHistory(MaxHistoryMessages)
		s.msgHistory[jobID] = history
	}
	s.historyM.Unlock()

	history.add(msg)
}

// history returns the kept messages of a job and how many older ones were
// dropped.
func (s *Server) history(jobID string) ([]exporter.WSMessage, int) {
	s.historyM.RLock()
	history, exists := s.msgHistory[jobID]
	s.historyM.RUnlock()
	if !exists {
		return []exporter.WSMessage{}, 0
	}
	return history.snapshot()
}

func (s *Server) lookupJob(jobID string) (*exporter.ExportProgress, bool) {
	s.jobsM.RLock()
	progress, ok := s.jobs[jobID]
	s.jobsM.RUnlock()
	if ok {
		return progress, true
	}
	if cached, found := s.cache.Get(jobID); found {
		return cached.(*exporter.ExportProgress), true
	}
	return nil, false
}

// finishJob moves a finished job from the running set into the cache.
func (s *Server) finishJob(jobID string, progress *exporter.ExportProgress) {
	progress.Close()
	s.cache.Set(jobID, progress, cache.DefaultExpiration)

	s.jobsM.Lock()
	delete(s.jobs, jobID)
	s.jobsM.Unlock()
}

func (s *Server) evictJob(jobID string, value interface{}) {
	progress, ok := value.(*exporter.ExportProgress)
	if !ok {
		return
	}
	if file, ok := progress.OutputFile(); ok {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove job output", "job", jobID, "error", err)
		}
	}
	s.historyM.Lock()
	delete(s.msgHistory, jobID)
	s.historyM.Unlock()
	s.logger.Info("job evicted", "job", jobID)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With")
		w.Header().Set("Access-Control-Expose-Headers", "X-Job-Id, X-Page-Count, X-Skipped-Images, Content-Disposition")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) setupRoutes() {
	headers := &secure.Secure{
		ContentTypeNoSniff: true,
		XSSFilterBlock:     true,
		FrameOption:        secure.FrameDeny,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(util.LoggingMiddleware(s.logger))
	s.router.Use(util.RecoveryMiddleware(s.logger))
	s.router.Use(corsMiddleware)
	s.router.Use(headers.Middleware())

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/fonts", s.handleFonts)
	s.router.Get("/api/backgrounds", s.handleBackgrounds)

	s.router.Group(func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			window := s.cfg.RateWindow
			if window <= 0 {
				window = time.Minute
			}
			r.Use(httprate.LimitByIP(s.cfg.RateLimit, window))
		}
		r.Post("/api/export", s.handleExport)
		r.Post("/api/jobs", s.handleCreateJob)
	})

	s.router.Route("/api/jobs/{jobID}", func(r chi.Router) {
		r.Get("/", s.handleGetJob)
		r.Delete("/", s.handleDeleteJob)
		r.Get("/messages", s.handleGetMessages)
		r.Get("/download", s.handleDownload)
	})
	s.router.Get("/ws/{jobID}", s.handleWebSocket)
}
