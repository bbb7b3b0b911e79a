// Package daemon exposes a running mirror session over a small HTTP API.
package daemon

import (
	"context"
	"dirmirror/internal/logger"
	"dirmirror/internal/model"
	"dirmirror/internal/repository"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 1000
)

type StatusProvider interface {
	Snapshot() model.SessionSnapshot
}

type HistoryReader interface {
	GetRecent(limit int) ([]model.History, error)
	GetFailed(limit int) ([]model.History, error)
	GetStats() (repository.Stats, error)
}

type Server struct {
	echo     *echo.Echo
	status   StatusProvider
	histRepo HistoryReader
	port     int
	stopCh   chan struct{}
}

// NewServer builds the control API. A nil history reader disables /history.
func NewServer(status StatusProvider, histRepo HistoryReader, port int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		status:   status,
		histRepo: histRepo,
		port:     port,
		stopCh:   make(chan struct{}, 1),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/status", s.handleStatus)
	s.echo.POST("/stop", s.handleStop)
	s.echo.GET("/history", s.handleHistory)
}

func (s *Server) Start() {
	go func() {
		addr := "127.0.0.1:" + strconv.Itoa(s.port)
		logger.Log.Info("control server started",
			zap.String("addr", addr))

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("control server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// StopCh fires when a client asks the process to exit.
func (s *Server) StopCh() <-chan struct{} {
	return s.stopCh
}

type statusResponse struct {
	Session model.SessionSnapshot `json:"session"`
	History *repository.Stats     `json:"history,omitempty"`
}

func (s *Server) handleStatus(c echo.Context) error {
	resp := statusResponse{Session: s.status.Snapshot()}

	if s.histRepo != nil {
		stats, err := s.histRepo.GetStats()
		if err != nil {
			logger.Log.Warn("failed to read history stats", zap.Error(err))
		} else {
			resp.History = &stats
		}
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleStop(c echo.Context) error {
	select {
	case s.stopCh <- struct{}{}:
	default:
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleHistory(c echo.Context) error {
	if s.histRepo == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "history is disabled"})
	}

	n := defaultHistoryLimit
	if nStr := c.QueryParam("n"); nStr != "" {
		parsed, err := strconv.Atoi(nStr)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "n must be a positive integer"})
		}
		n = min(parsed, maxHistoryLimit)
	}

	get := s.histRepo.GetRecent
	if failed, _ := strconv.ParseBool(c.QueryParam("failed")); failed {
		get = s.histRepo.GetFailed
	}

	histories, err := get(n)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, histories)
}
