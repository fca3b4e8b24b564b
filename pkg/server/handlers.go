package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lifebank/internal/knowledge"
	"github.com/fyrsmithlabs/lifebank/internal/orchestrator"
	"github.com/fyrsmithlabs/lifebank/internal/taxonomy"
)

type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Nodes   int    `json:"nodes"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "lifebank",
		Nodes:   s.store.Len(),
	})
}

// handleListNodes handles GET /api/v1/nodes?owner=...&type=...
func (s *Server) handleListNodes(c echo.Context) error {
	owner := c.QueryParam("owner")
	prefix := c.QueryParam("type")

	var nodes []*knowledge.Node
	if owner != "" {
		nodes = s.store.FindByOwner(owner, prefix)
	} else {
		nodes = s.store.Find(prefix)
	}
	return c.JSON(http.StatusOK, nodes)
}

// CreateNodeRequest is the body of POST /api/v1/nodes. Nodes created here
// are user input: confidence 1.0, confirmed, never flagged for review.
type CreateNodeRequest struct {
	OwnerID      string         `json:"owner_id"`
	NodeType     string         `json:"node_type"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	ParentNodeID string         `json:"parent_node_id,omitempty"`
}

func (s *Server) handleCreateNode(c echo.Context) error {
	var req CreateNodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.NodeType == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "node_type is required"})
	}

	node, err := knowledge.NewNode(req.OwnerID, req.NodeType, req.Name, knowledge.ContentAITag, knowledge.Source{
		Kind:       knowledge.SourceUserInput,
		Confidence: 1.0,
	})
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	node.Description = req.Description
	node.Tags = req.Tags
	node.Attributes = req.Attributes
	node.ParentNodeID = req.ParentNodeID
	node.Verification.ConfirmedByUser = true

	if err := s.store.Upsert(node); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	stored, err := s.store.Get(node.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusCreated, stored)
}

func (s *Server) handleGetNode(c echo.Context) error {
	node, err := s.store.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, knowledge.ErrNodeNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "node not found"})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, node)
}

func (s *Server) handleDeleteNode(c echo.Context) error {
	if err := s.store.Delete(c.Param("id")); err != nil {
		if errors.Is(err, knowledge.ErrNodeNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "node not found"})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleNodeChildren(c echo.Context) error {
	id := c.Param("id")
	if _, err := s.store.Get(id); err != nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "node not found"})
	}
	return c.JSON(http.StatusOK, s.store.ChildrenOf(id))
}

// handleSearch handles GET /api/v1/search?q=...&limit=N over the semantic
// index.
func (s *Server) handleSearch(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "query parameter 'q' is required"})
	}
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
		}
		limit = n
	}

	nodes, err := s.store.Search(c.Request().Context(), query, limit)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, nodes)
}

// TaxonomyResponse lists the valid children of a taxonomy path.
type TaxonomyResponse struct {
	Path     string   `json:"path"`
	Display  string   `json:"display"`
	Children []string `json:"children"`
}

func (s *Server) handleTaxonomyChildren(c echo.Context) error {
	raw := c.Param("path")
	path, ok := taxonomy.ParsePath(raw)
	if !ok || !s.registry.Validate(path) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown taxonomy path"})
	}

	var children []string
	if path.Depth() == 1 {
		children = s.registry.ChildrenOf(path.Level1)
	}
	return c.JSON(http.StatusOK, TaxonomyResponse{
		Path:     path.String(),
		Display:  s.registry.DisplayPath(path),
		Children: children,
	})
}

func (s *Server) handleExtract(c echo.Context) error {
	if s.runner == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "extraction is not configured"})
	}
	day := c.Param("day")

	run, err := s.runner.RunForDay(c.Request().Context(), day)
	if err != nil {
		if errors.Is(err, orchestrator.ErrRunActive) {
			return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
		}
		if errors.Is(err, orchestrator.ErrRunStale) {
			return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	s.logger.Info("extraction run finished",
		zap.String("day_id", day),
		zap.String("state", string(run.State)))
	return c.JSON(http.StatusOK, run)
}

func (s *Server) handleExtractStatus(c echo.Context) error {
	if s.runner == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "extraction is not configured"})
	}
	run, ok := s.runner.Status(c.Param("day"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "no run for day"})
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) handleExtractCancel(c echo.Context) error {
	if s.runner == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "extraction is not configured"})
	}
	if !s.runner.Cancel(c.Param("day")) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "no active run for day"})
	}
	return c.NoContent(http.StatusNoContent)
}
