// internal/adapters/api/handlers.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"argus/internal/core/domain"
	"argus/internal/platform/errors"
)

type errorResponse struct {
	Error  string `json:"error"`
	TaskID string `json:"task_id,omitempty"`
}

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Error: msg})
}

// taskError traduce los errores de dominio a códigos HTTP.
func taskError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		return jsonError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrTaskNotComplete):
		return jsonError(c, http.StatusConflict, err.Error())
	default:
		return jsonError(c, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"tasks":   len(s.orch.ListTasks()),
	})
}

type createCollectionParams struct {
	Target         string   `json:"target" validate:"required,max=2048"`
	CollectorTypes []string `json:"collector_types" validate:"omitempty,max=16,dive,required,max=64"`
	IncludeDarkWeb bool     `json:"include_darkweb"`
	IncludeMedia   bool     `json:"include_media"`
	Priority       string   `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	TimeoutSeconds int      `json:"timeout_seconds" validate:"omitempty,min=1,max=86400"`
}

type createCollectionResponse struct {
	TaskID    string `json:"task_id"`
	StatusURL string `json:"status_url"`
}

func (s *Server) createCollectionHandler(c echo.Context) error {
	params := new(createCollectionParams)
	if err := c.Bind(params); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(params); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request: "+err.Error())
	}

	req := domain.CollectionRequest{
		Target:         params.Target,
		CollectorTypes: params.CollectorTypes,
		IncludeDarkWeb: params.IncludeDarkWeb,
		IncludeMedia:   params.IncludeMedia,
		Priority:       domain.ParsePriority(params.Priority),
		TimeoutSeconds: params.TimeoutSeconds,
	}

	taskID, err := s.orch.StartCollection(c.Request().Context(), req)
	if err != nil {
		var ethics *domain.EthicsViolationError
		switch {
		case errors.As(err, &ethics):
			return c.JSON(http.StatusForbidden, errorResponse{Error: err.Error(), TaskID: ethics.TaskID})
		case errors.Is(err, domain.ErrNoCollectorFound):
			return jsonError(c, http.StatusUnprocessableEntity, err.Error())
		default:
			s.logger.Warn("collection start failed", "target", params.Target, "error", err.Error())
			return jsonError(c, http.StatusInternalServerError, "internal server error")
		}
	}

	return c.JSON(http.StatusAccepted, createCollectionResponse{
		TaskID:    taskID,
		StatusURL: "/api/v1/collections/" + taskID,
	})
}

func (s *Server) listCollectionsHandler(c echo.Context) error {
	tasks := s.orch.ListTasks()
	if status := strings.ToLower(c.QueryParam("status")); status != "" {
		filtered := tasks[:0]
		for _, t := range tasks {
			if string(t.Status) == status {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	if tasks == nil {
		tasks = []domain.CollectionTask{}
	}
	return c.JSON(http.StatusOK, tasks)
}

type taskParams struct {
	ID string `param:"id" validate:"required,max=64"`
}

func (s *Server) bindTask(c echo.Context) (string, error) {
	params := new(taskParams)
	if err := c.Bind(params); err != nil {
		return "", err
	}
	if err := c.Validate(params); err != nil {
		return "", err
	}
	return params.ID, nil
}

func (s *Server) getCollectionHandler(c echo.Context) error {
	id, err := s.bindTask(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid task id")
	}
	task, err := s.orch.GetTaskStatus(id)
	if err != nil {
		return taskError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) cancelCollectionHandler(c echo.Context) error {
	id, err := s.bindTask(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid task id")
	}
	cancelled, err := s.orch.CancelTask(id)
	if err != nil {
		return taskError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"task_id": id, "cancelled": cancelled})
}

func (s *Server) getResultsHandler(c echo.Context) error {
	id, err := s.bindTask(c)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid task id")
	}
	results, err := s.orch.GetResults(id)
	if err != nil {
		return taskError(c, err)
	}
	return c.JSON(http.StatusOK, results)
}

type neighborsParams struct {
	ID    string `query:"id" validate:"required_without=Value"`
	Type  string `query:"type" validate:"required_with=Value"`
	Value string `query:"value"`
	Rel   string `query:"rel"`
}

func (s *Server) neighborsHandler(c echo.Context) error {
	if s.graph == nil {
		return jsonError(c, http.StatusServiceUnavailable, "graph is not enabled")
	}
	params := new(neighborsParams)
	if err := c.Bind(params); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(params); err != nil {
		return jsonError(c, http.StatusBadRequest, "id or type+value required")
	}

	id := params.ID
	if id == "" {
		var ok bool
		id, ok = s.graph.Lookup(domain.EntityType(strings.ToLower(params.Type)), params.Value)
		if !ok {
			return jsonError(c, http.StatusNotFound, "entity not in graph")
		}
	}

	var rels []string
	if params.Rel != "" {
		rels = strings.Split(params.Rel, ",")
	}
	neighbors, err := s.graph.Neighbors(id, rels...)
	if err != nil {
		return jsonError(c, http.StatusNotFound, err.Error())
	}
	node, _ := s.graph.Node(id)
	return c.JSON(http.StatusOK, map[string]any{"node": node, "neighbors": neighbors})
}

type pathParams struct {
	From string `query:"from" validate:"required"`
	To   string `query:"to" validate:"required"`
}

func (s *Server) pathHandler(c echo.Context) error {
	if s.graph == nil {
		return jsonError(c, http.StatusServiceUnavailable, "graph is not enabled")
	}
	params := new(pathParams)
	if err := c.Bind(params); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(params); err != nil {
		return jsonError(c, http.StatusBadRequest, "from and to required")
	}
	path, err := s.graph.ShortestPath(params.From, params.To)
	if err != nil {
		return jsonError(c, http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"path": path, "hops": len(path) - 1})
}

func (s *Server) collectorsHandler(c echo.Context) error {
	if s.catalog == nil {
		return c.JSON(http.StatusOK, []any{})
	}
	return c.JSON(http.StatusOK, s.catalog.AllMetadata())
}
