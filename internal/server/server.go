package server

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/henvic/httpretty"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/stateful/diagrammer/internal/editor"
	"github.com/stateful/diagrammer/internal/lru"
	"github.com/stateful/diagrammer/internal/store"
	diagrammertls "github.com/stateful/diagrammer/internal/tls"
)

const (
	DefaultMaxSessions = 1024
	maxBodySize        = 2 * 1024 * 1024 // 2 MiB
)

type Config struct {
	Address        string
	CertFile       string
	KeyFile        string
	TLSEnabled     bool
	AllowedOrigins []string
	MaxSessions    int
	// DumpHTTP writes every request and response to DumpOutput.
	DumpHTTP   bool
	DumpOutput io.Writer
}

// EditorFactory creates the editor of session id, restoring it from the
// store when it was persisted before.
type EditorFactory func(ctx context.Context, id string) *editor.Editor

type Server struct {
	httpServer *http.Server
	lis        net.Listener
	sessions   *lru.Cache[*editor.Editor]
	newEditor  EditorFactory
	store      store.Store
	logger     *zap.Logger
}

func New(
	c *Config,
	factory EditorFactory,
	st store.Store,
	logger *zap.Logger,
) (_ *Server, err error) {
	var tlsConfig *tls.Config

	if c.TLSEnabled {
		tlsConfig, err = diagrammertls.LoadOrGenerateConfig(c.CertFile, c.KeyFile, logger)
		if err != nil {
			return nil, err
		}
	}

	addr := c.Address
	protocol := "tcp"

	if strings.HasPrefix(addr, "unix://") {
		protocol = "unix"
		addr = strings.TrimPrefix(addr, "unix://")

		if _, err := os.Stat(addr); !os.IsNotExist(err) {
			return nil, errors.Errorf("socket %q already exists", addr)
		}
	}

	var lis net.Listener
	if tlsConfig == nil {
		lis, err = net.Listen(protocol, addr)
	} else {
		lis, err = tls.Listen(protocol, addr, tlsConfig)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	logger.Info("server listening", zap.String("address", lis.Addr().String()), zap.Bool("tls", tlsConfig != nil))

	maxSessions := c.MaxSessions
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}

	s := &Server{
		lis:       lis,
		newEditor: factory,
		store:     st,
		logger:    logger,
		sessions: lru.NewCache(maxSessions, lru.WithOnEvict(func(e *editor.Editor) {
			logger.Debug("closing evicted session", zap.String("id", e.ID()))
			e.Close()
		})),
	}

	s.httpServer = &http.Server{
		Handler:           s.handler(c),
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}

	return s, nil
}

func (s *Server) handler(c *Config) http.Handler {
	var h http.Handler = newCORS(c.AllowedOrigins).Handler(s.routes())
	if c.DumpHTTP {
		out := c.DumpOutput
		if out == nil {
			out = os.Stderr
		}
		h = newHTTPDumper(out).Middleware(h)
	}
	return h
}

func (s *Server) Addr() string {
	return s.lis.Addr().String()
}

// Serve blocks until Shutdown is called.
func (s *Server) Serve() error {
	err := s.httpServer.Serve(s.lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.WithStack(err)
}

// Shutdown stops accepting requests, waits for active ones and closes
// every open session.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.sessions.Purge()
	return errors.WithStack(err)
}

func newCORS(allowedOrigins []string) *cors.Cors {
	opts := cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition"},
		// Let browsers cache CORS information for longer, which reduces the number
		// of preflight requests.
		MaxAge: 2 * 60 * 60, // 2 hours
	}
	if len(allowedOrigins) == 0 {
		// Allow all origins, which effectively disables CORS.
		opts.AllowOriginFunc = func(string) bool { return true }
	} else {
		opts.AllowedOrigins = allowedOrigins
	}
	return cors.New(opts)
}

func newHTTPDumper(out io.Writer) *httpretty.Logger {
	logger := &httpretty.Logger{
		Time:            true,
		TLS:             false,
		RequestHeader:   true,
		RequestBody:     true,
		ResponseHeader:  true,
		ResponseBody:    true,
		Formatters:      []httpretty.Formatter{&httpretty.JSONFormatter{}},
		MaxRequestBody:  50000,
		MaxResponseBody: 50000,
	}
	logger.SetOutput(out)
	return logger
}
