package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/brightfame/towerctl/internal/docker"
	"github.com/brightfame/towerctl/internal/notify"
	"github.com/brightfame/towerctl/internal/panel"
	"github.com/brightfame/towerctl/internal/watchconfig"
)

// SuccessResponse wraps every successful API payload.
type SuccessResponse[T any] struct {
	Success bool `json:"success"`
	Data    *T   `json:"data,omitempty"`
}

// NewSuccessResponse wraps data.
func NewSuccessResponse[T any](data *T) SuccessResponse[T] {
	return SuccessResponse[T]{Success: true, Data: data}
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type VersionResponse struct {
	Version string `json:"version"`
}

type ContainersResponse struct {
	Containers []docker.ContainerView `json:"containers"`
}

type LogsResponse struct {
	Lines []string `json:"lines"`
}

// StartRequest is the start form as submitted by a web front end.
type StartRequest struct {
	Duration        int64    `json:"duration"`
	Unit            string   `json:"unit"`
	MonitorAll      bool     `json:"monitor_all"`
	Targets         []string `json:"targets"`
	NotificationURL string   `json:"notification_url"`
}

type StartResponse struct {
	Args []string `json:"args"`
}

type StopResponse struct {
	Container string `json:"container"`
}

type ParseRequest struct {
	Command string `json:"command"`
}

func (s *Server) errorResponse(c *gin.Context, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Detail = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, resp)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}

func (s *Server) version(c *gin.Context) {
	c.JSON(http.StatusOK, VersionResponse{Version: s.opts.Version})
}

// status returns the latest snapshot. ?refresh=true polls the engine first.
func (s *Server) status(c *gin.Context) {
	if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
		if _, err := s.ctrl.Refresh(c.Request.Context()); err != nil {
			s.errorResponse(c, http.StatusBadGateway, "failed to list containers", err)
			return
		}
	}
	st := s.ctrl.Status()
	c.JSON(http.StatusOK, NewSuccessResponse(&st))
}

// containers returns the container list cached by the last observation.
func (s *Server) containers(c *gin.Context) {
	list := s.ctrl.Snapshot().Containers
	if list == nil {
		list = []docker.ContainerView{}
	}
	c.JSON(http.StatusOK, NewSuccessResponse(&ContainersResponse{Containers: list}))
}

func (s *Server) start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	unit, err := watchconfig.ParseUnit(req.Unit)
	if err != nil {
		s.errorResponse(c, http.StatusBadRequest, "invalid start configuration", err)
		return
	}

	args, err := s.ctrl.Start(c.Request.Context(), watchconfig.StartConfiguration{
		Magnitude:       req.Duration,
		Unit:            unit,
		MonitorAll:      req.MonitorAll,
		Targets:         req.Targets,
		NotificationURL: req.NotificationURL,
	})
	switch {
	case err == nil:
	case errors.Is(err, watchconfig.ErrInvalidDuration),
		errors.Is(err, watchconfig.ErrUnknownUnit),
		errors.Is(err, notify.ErrInvalidURL):
		s.errorResponse(c, http.StatusBadRequest, "invalid start configuration", err)
		return
	case errors.Is(err, panel.ErrAlreadyRunning), errors.Is(err, panel.ErrStartInFlight):
		s.errorResponse(c, http.StatusConflict, "daemon cannot be started now", err)
		return
	default:
		s.errorResponse(c, http.StatusBadGateway, "failed to start daemon", err)
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse(&StartResponse{Args: args}))
}

func (s *Server) stop(c *gin.Context) {
	if err := s.ctrl.Stop(c.Request.Context()); err != nil {
		s.errorResponse(c, http.StatusBadGateway, "failed to stop daemon", err)
		return
	}
	name := s.ctrl.Daemon().ContainerName
	if d := s.ctrl.Snapshot().Daemon; d != nil {
		name = d.Name()
	}
	c.JSON(http.StatusAccepted, NewSuccessResponse(&StopResponse{Container: name}))
}

func (s *Server) logs(c *gin.Context) {
	n, _ := strconv.Atoi(c.Query("tail"))
	lines := s.ctrl.Logs(n)
	if lines == nil {
		lines = []string{}
	}
	c.JSON(http.StatusOK, NewSuccessResponse(&LogsResponse{Lines: lines}))
}

// parse runs the command parser against an arbitrary command string.
func (s *Server) parse(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	rc, err := s.ctrl.Daemon().Parse(req.Command)
	if err != nil {
		s.errorResponse(c, http.StatusUnprocessableEntity, "unrecognized command", err)
		return
	}
	cfg := panel.NewConfiguration(rc)
	c.JSON(http.StatusOK, NewSuccessResponse(&cfg))
}
