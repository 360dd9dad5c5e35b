package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"jobtrail/internal/api"
	"jobtrail/internal/config"
	"jobtrail/internal/logging"
	"jobtrail/internal/services"
)

const requestIDHeader = "X-Request-ID"

type apiServer struct {
	bind    string
	logger  *slog.Logger
	service *api.Service
	engine  *gin.Engine

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, svc *api.Service, logger *slog.Logger) *apiServer {
	gin.SetMode(gin.ReleaseMode)
	srv := &apiServer{
		bind:    strings.TrimSpace(cfg.Paths.APIBind),
		logger:  logging.NewComponentLogger(logger, "api-server"),
		service: svc,
	}
	srv.engine = srv.routes(strings.TrimSpace(cfg.Paths.APIToken))
	return srv
}

func (s *apiServer) routes(token string) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestContext(), s.accessLog())

	// The OAuth provider redirects the browser here, so it cannot carry a
	// bearer token. The state parameter binds it to a StartAuth call.
	engine.GET("/api/auth/callback", s.handleAuthCallback)

	group := engine.Group("/api", bearerAuth(token))
	{
		group.GET("/status", s.handleStatus)
		group.POST("/auth/start", s.handleAuthStart)
		group.POST("/auth/complete", s.handleAuthComplete)

		group.POST("/monitor/start", s.handleMonitorStart)
		group.POST("/monitor/stop", s.handleMonitorStop)
		group.POST("/monitor/scan", s.handleScan)

		group.GET("/applications", s.handleListApplications)
		group.POST("/applications", s.handleAddApplication)
		group.GET("/applications/:id", s.handleGetApplication)
		group.PUT("/applications/:id", s.handleSetStage)
		group.DELETE("/applications/:id", s.handleDeleteApplication)
	}
	return engine
}

func (s *apiServer) start() error {
	if s == nil || s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Manual scans classify up to max_results messages.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err), logging.String(logging.FieldEventType, "api_serve_failed"))
		}
	}()
	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *apiServer) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (s *apiServer) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger := logging.WithContext(c.Request.Context(), s.logger)
		logger.Debug("api request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("elapsed", time.Since(started)),
		)
	}
}

func (s *apiServer) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.Status(c.Request.Context()))
}

func (s *apiServer) handleAuthStart(c *gin.Context) {
	resp, err := s.service.StartAuth(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *apiServer) handleAuthComplete(c *gin.Context) {
	var req api.AuthCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonError(c, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	resp, err := s.service.CompleteAuth(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *apiServer) handleAuthCallback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		c.String(http.StatusBadRequest, "Authorization was not granted: %s\n", reason)
		return
	}
	req := api.AuthCompleteRequest{Code: c.Query("code"), State: c.Query("state")}
	if strings.TrimSpace(req.State) == "" {
		c.String(http.StatusBadRequest, "Missing state parameter.\n")
		return
	}
	resp, err := s.service.CompleteAuth(c.Request.Context(), req)
	if err != nil {
		s.logFailure(c, err)
		c.String(services.HTTPStatus(err), "Could not connect mailbox: %v\n", err)
		return
	}
	c.String(http.StatusOK, "Connected %s. Tracking %d applications. You can close this window.\n", resp.Account, s.service.Status(c.Request.Context()).Applications)
}

func (s *apiServer) handleMonitorStart(c *gin.Context) {
	resp, err := s.service.StartMonitor(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *apiServer) handleMonitorStop(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.StopMonitor(c.Request.Context()))
}

func (s *apiServer) handleScan(c *gin.Context) {
	resp, err := s.service.Scan(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *apiServer) handleListApplications(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.Applications(c.Request.Context()))
}

func (s *apiServer) handleGetApplication(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	app, err := s.service.Application(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *apiServer) handleAddApplication(c *gin.Context) {
	var req api.AddApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonError(c, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	app, err := s.service.AddApplication(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (s *apiServer) handleSetStage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req api.SetStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonError(c, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	app, err := s.service.SetStage(c.Request.Context(), id, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *apiServer) handleDeleteApplication(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.service.DeleteApplication(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(c, http.StatusBadRequest, "bad_request", "invalid application id")
		return 0, false
	}
	return id, true
}

func (s *apiServer) fail(c *gin.Context, err error) {
	status := services.HTTPStatus(err)
	s.logFailure(c, err)
	jsonError(c, status, errorCode(status), err.Error())
}

func (s *apiServer) logFailure(c *gin.Context, err error) {
	status := services.HTTPStatus(err)
	logger := logging.WithContext(c.Request.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("api request failed",
			logging.String("path", c.FullPath()),
			logging.Int("status", status),
			logging.Error(err),
			logging.String(logging.FieldEventType, "api_request_failed"),
		)
		return
	}
	logger.Debug("api request rejected",
		logging.String("path", c.FullPath()),
		logging.Int("status", status),
		logging.Error(err),
	)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func jsonError(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Error: apiError{Code: code, Message: message}})
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "not_authenticated"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "internal_error"
	}
}
