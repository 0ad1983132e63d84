package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/GDG-HUFS-Idea/sparklens/internal/store"
)

type ProjectsHandler struct {
	Store *store.Store
}

func (h *ProjectsHandler) Register(g *echo.Group, secret []byte) {
	auth := echoAuthMiddleware(secret)
	g.GET("", h.list, auth)
	g.GET("/:id/analyses/overview", h.getOverview, auth)
}

type projectItem struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *ProjectsHandler) list(c echo.Context) error {
	userID, ok := userIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	projects, err := h.Store.ListProjects(c.Request().Context(), userID, offset, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	items := make([]projectItem, 0, len(projects))
	for _, p := range projects {
		items = append(items, projectItem{ID: p.ID, Name: p.Name, Status: p.Status, CreatedAt: p.CreatedAt})
	}
	return c.JSON(http.StatusOK, map[string]any{"projects": items})
}

type overviewResponse struct {
	ProjectID   int64           `json:"project_id"`
	ProjectName string          `json:"project_name"`
	Evaluation  string          `json:"evaluation"`
	Report      json.RawMessage `json:"report"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (h *ProjectsHandler) getOverview(c echo.Context) error {
	userID, ok := userIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid project id")
	}

	rec, err := h.Store.GetOverviewAnalysis(c.Request().Context(), projectID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "analysis not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, overviewResponse{
		ProjectID:   rec.ProjectID,
		ProjectName: rec.ProjectName,
		Evaluation:  rec.Evaluation,
		Report:      rec.Report,
		CreatedAt:   rec.CreatedAt,
	})
}
