// Package receiver is a small HTTP server implementing the server side of
// the upload contract: multipart POSTs are stored on disk and can be listed,
// inspected and deleted.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nebula-ui/nebula-upload/internal/constants"
	"github.com/nebula-ui/nebula-upload/internal/diskspace"
	"github.com/nebula-ui/nebula-upload/internal/logging"
	"github.com/nebula-ui/nebula-upload/internal/metrics"
	"github.com/nebula-ui/nebula-upload/internal/validation"
)

// Options configures a Server.
type Options struct {
	FieldName string // Multipart field holding the file, "file" when empty
	MaxBytes  int64  // Request body limit, 0 = unlimited

	Logger   *logging.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // Served on /metrics, global registry when nil
}

// Server routes upload requests to a LocalStore.
type Server struct {
	echo      *echo.Echo
	store     *LocalStore
	fieldName string
	maxBytes  int64
	logger    *logging.Logger
	metrics   *metrics.Metrics

	checkSpace func(dir string, required int64) error
}

// New creates a Server with all routes registered.
func New(store *LocalStore, opts Options) *Server {
	s := &Server{
		echo:      echo.New(),
		store:     store,
		fieldName: opts.FieldName,
		maxBytes:  opts.MaxBytes,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
	s.checkSpace = func(dir string, required int64) error {
		return diskspace.CheckAvailableSpace(dir, required, constants.ReceiverSpaceMargin)
	}
	if s.fieldName == "" {
		s.fieldName = constants.DefaultFieldName
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/health" || path == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("Request")
			return nil
		},
	}))
	if s.maxBytes > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dB", s.maxBytes)))
	}

	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(opts.Gatherer)))

	e.POST("/upload", s.handleUpload)
	e.GET("/files", s.handleList)
	e.GET("/files/:id", s.handleGet)
	e.GET("/files/:id/content", s.handleContent)
	e.DELETE("/files/:id", s.handleDelete)

	return s
}

// Handler returns the server as an http.Handler, for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Receiver listening")
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("receiver shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"files":  len(s.store.List(0)),
	})
}

// uploadResponse is the 201 body of POST /upload
type uploadResponse struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Size   int64             `json:"size"`
	Fields map[string]string `json:"fields"`
}

func (s *Server) handleUpload(c echo.Context) error {
	// Content-Length covers the whole form, a close upper bound for the file
	if n := c.Request().ContentLength; n > 0 {
		if err := s.checkSpace(s.store.Dir(), n); err != nil {
			return NewInsufficientStorageError(err)
		}
	}

	header, err := c.FormFile(s.fieldName)
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		return NewBadRequestError(fmt.Sprintf("no file provided in field %q", s.fieldName), err)
	}

	if err := validation.ValidateFilename(header.Filename); err != nil {
		return NewBadRequestError("invalid file name", err)
	}

	fields := map[string]string{}
	if form, err := c.MultipartForm(); err == nil {
		for key, values := range form.Value {
			if len(values) > 0 {
				fields[key] = values[0]
			}
		}
	}

	src, err := header.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := s.store.Save(header.Filename, header.Header.Get(echo.HeaderContentType), fields, src)
	if err != nil {
		if diskspace.IsInsufficientSpaceError(err) {
			return NewInsufficientStorageError(err)
		}
		return NewInternalError("failed to save file", err)
	}

	s.metrics.FileStored(info.Size)
	s.logger.Info().
		Str("id", info.ID).
		Str("name", info.Name).
		Int64("size", info.Size).
		Msg("Stored upload")

	return c.JSON(http.StatusCreated, uploadResponse{
		ID:     info.ID,
		Name:   info.Name,
		Size:   info.Size,
		Fields: info.Fields,
	})
}

func (s *Server) handleList(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.List(constants.ReceiverListLimit))
}

func (s *Server) handleGet(c echo.Context) error {
	id := c.Param("id")
	info, err := s.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleContent(c echo.Context) error {
	id := c.Param("id")
	info, err := s.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}
	rc, err := s.store.Open(id)
	if err != nil {
		return NewInternalError("failed to open file", err)
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", info.Name))
	return c.Stream(http.StatusOK, contentType, rc)
}

func (s *Server) handleDelete(c echo.Context) error {
	id := c.Param("id")
	if err := s.store.Delete(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewNotFoundError("file", id)
		}
		return NewInternalError("failed to delete file", err)
	}
	s.logger.Info().Str("id", id).Msg("Deleted upload")
	return c.NoContent(http.StatusNoContent)
}
