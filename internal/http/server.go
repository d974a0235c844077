package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"billed/internal/auth"
	"billed/internal/cache"
	"billed/internal/controller"
	"billed/internal/log"
	"billed/internal/metrics"
	"billed/internal/middleware/ratelimit"
	"billed/internal/middleware/security"
	"billed/internal/middleware/trace"
	"billed/internal/session"
	"billed/internal/store"
	appweb "billed/web"
)

// Options wires the server to its collaborators. Store and Sessions are
// required; the JSON API is only mounted when Issuer is set.
type Options struct {
	Addr           string
	Store          store.Store
	Receipts       store.ReceiptReader
	Issuer         *auth.Issuer
	Sessions       *session.Registry
	ModalWidth     int
	UploadMaxBytes int64
	UpdateTimeout  time.Duration
	Observer       controller.SubmissionObserver
	RateLimit      ratelimit.Config
	ImageOrigin    string
	CleanupEvery   time.Duration
	// Ready reports whether the backing store can serve; nil means always.
	Ready  func(context.Context) error
	Logger *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	logger    *log.Logger

	store          store.Store
	receipts       store.ReceiptReader
	issuer         *auth.Issuer
	sessions       *session.Registry
	modalWidth     int
	uploadMaxBytes int64
	updateTimeout  time.Duration
	observer       controller.SubmissionObserver
	ready          func(context.Context) error

	// open new bill forms, keyed by session id
	pages    *cache.LRUCache[*newBillPage]
	cleanup  *cache.Manager
	inflight sync.WaitGroup

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	started     time.Time

	shutdownOnce sync.Once
}

var errMissingDeps = errors.New("http server needs a store and a session registry")

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil || opts.Sessions == nil {
		return nil, errMissingDeps
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates:      t,
		logger:         logger,
		store:          opts.Store,
		receipts:       opts.Receipts,
		issuer:         opts.Issuer,
		sessions:       opts.Sessions,
		modalWidth:     opts.ModalWidth,
		uploadMaxBytes: opts.UploadMaxBytes,
		updateTimeout:  opts.UpdateTimeout,
		observer:       opts.Observer,
		ready:          opts.Ready,
		pages:          cache.NewSlidingLRUCache[*newBillPage](1000, 2*time.Hour),
		cleanup:        cache.NewManager(),
		detector:       security.NewDetector(),
		rateLimiter:    ratelimit.NewLimiter(opts.RateLimit),
		started:        time.Now(),
	}
	if s.modalWidth <= 0 {
		s.modalWidth = controller.DefaultModalWidth
	}
	if s.receipts == nil {
		if rr, ok := opts.Store.(store.ReceiptReader); ok {
			s.receipts = rr
		}
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.cleanup.Register(sessionSweeper{s})
	s.cleanup.Register(s.pages)
	every := opts.CleanupEvery
	if every <= 0 {
		every = 10 * time.Minute
	}
	s.cleanup.StartCleanup(every)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts.ImageOrigin),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(imageOrigin string) http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /{$}", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /employee/bills", s.requireUser(s.handleBills))
	mux.HandleFunc("GET /employee/bills/receipt", s.requireUser(s.handleReceiptPreview))
	mux.HandleFunc("POST /employee/bills/new", s.requireUser(s.handleNewBillButton))
	mux.HandleFunc("GET /employee/bill/new", s.requireUser(s.handleNewBillPage))
	mux.HandleFunc("POST /employee/bill/new/file", s.requireUser(s.handleFileChange))
	mux.HandleFunc("POST /employee/bill/new", s.requireUser(s.handleSubmit))

	if s.receipts != nil {
		mux.HandleFunc("GET /receipts/{key}", s.handleReceipt)
	}
	if s.issuer != nil {
		api := func(h http.HandlerFunc) http.Handler {
			return log.ComponentMiddleware(log.ComponentStore)(s.issuer.Middleware(h))
		}
		mux.Handle("GET /api/bills", api(s.handleAPIList))
		mux.Handle("POST /api/bills", api(s.handleAPICreate))
		mux.Handle("PATCH /api/bills/{id}", api(s.handleAPIUpdate))
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig().AllowImageOrigin(imageOrigin))
	limit := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
			"Rate limit exceeded", log.FieldPath, r.URL.Path)
		StatusError(http.StatusTooManyRequests).Write(w)
	})

	var h http.Handler = mux
	h = limit(h)
	h = s.detector.Middleware(false)(h)
	h = headers.Middleware(h)
	h = s.tracer.Middleware(h)
	return metrics.InstrumentHandler(h)
}

// sessionSweeper expires idle sessions and their open forms and refreshes
// the session gauge.
type sessionSweeper struct{ s *Server }

func (sw sessionSweeper) CleanExpired() int {
	n := sw.s.sessions.Cleaner().CleanExpired()
	sw.s.refreshSessionGauge()
	return n
}

// Shutdown stops the server, then waits for submitted bills to settle until
// ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
		s.cleanup.Stop()
		s.rateLimiter.Stop()

		done := make(chan struct{})
		go func() {
			s.inflight.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warn("Shutdown before pending bill updates settled", log.FieldOperation, log.OpShutdown)
			if shutdownErr == nil {
				shutdownErr = ctx.Err()
			}
		}
	})
	return shutdownErr
}
