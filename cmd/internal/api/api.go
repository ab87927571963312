package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/webhookd/backup-relay/cmd/internal/artifact"
	"github.com/webhookd/backup-relay/cmd/internal/backup"
	"go.uber.org/zap"
)

// Runner triggers a single backup cycle out of the regular time schedule
type Runner interface {
	RunOnce(ctx context.Context) backup.Outcome
}

// Server provides the control API of the sidecar: a manual backup trigger
// and the artifact listing. Metrics are served on their own port.
type Server struct {
	log    *zap.SugaredLogger
	addr   string
	runner Runner
	store  *artifact.Store
	server *http.Server
}

func New(log *zap.SugaredLogger, addr string, runner Runner, store *artifact.Store) *Server {
	return &Server{
		log:    log,
		addr:   addr,
		runner: runner,
		store:  store,
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/api/v1/backup", s.handleBackup)
	r.GET("/api/v1/backups", s.handleListBackups)
	r.GET("/healthz", s.handleHealth)

	return r
}

// Start begins serving the control API in the background
func (s *Server) Start(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	r := s.routes()

	s.server = &http.Server{
		Handler:           r,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.log.Infow("serving control api", "addr", s.addr)

	go func() {
		err := s.server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			s.log.Errorw("control api server stopped", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the control API server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleBackup(c *gin.Context) {
	outcome := s.runner.RunOnce(c.Request.Context())

	status := http.StatusOK
	switch outcome {
	case backup.AlreadyInProgress:
		status = http.StatusConflict
	case backup.ArchiveFailed, backup.TransferFailed:
		status = http.StatusInternalServerError
	case backup.Success:
	}

	c.JSON(status, gin.H{"outcome": outcome.String()})
}

func (s *Server) handleListBackups(c *gin.Context) {
	artifacts, err := s.store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list backups"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"backups": artifacts})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
