package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/GDG-HUFS-Idea/sparklens/internal/analysis"
	"github.com/GDG-HUFS-Idea/sparklens/internal/cache"
)

const (
	streamInterval = 5 * time.Second
	streamTimeout  = cache.ProgressTTL
)

// Submitter launches analyses; *analysis.Pipeline satisfies it.
type Submitter interface {
	Submit(ctx context.Context, sub analysis.Submission) (string, error)
}

// ProgressReader reads progress records; *cache.ProgressStore satisfies it.
type ProgressReader interface {
	Get(ctx context.Context, key string) (cache.ProgressRecord, bool, error)
}

type AnalysisHandler struct {
	Pipeline Submitter
	Progress ProgressReader
	Logger   *log.Logger
}

func (h *AnalysisHandler) Register(g *echo.Group, secret []byte) {
	auth := echoAuthMiddleware(secret)
	g.POST("/overview", h.submit, auth)
	g.GET("/overview/progress", h.stream, auth)
}

type OverviewAnalysisRequest struct {
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
}

// submit accepts an analysis request and returns the task id immediately;
// the analysis itself runs detached.
func (h *AnalysisHandler) submit(c echo.Context) error {
	var req OverviewAnalysisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Problem) == "" || strings.TrimSpace(req.Solution) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "problem and solution are required")
	}
	// Record the client origin, not the server's Host header; the stream
	// endpoint compares it against the watcher's origin.
	host := c.RealIP()
	if host == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "client origin unresolved")
	}

	sub := analysis.Submission{
		Problem:   req.Problem,
		Solution:  req.Solution,
		OwnerHost: host,
	}
	if userID, ok := userIDFromContext(c); ok {
		sub.OwnerUserID = &userID
	}

	taskID, err := h.Pipeline.Submit(c.Request().Context(), sub)
	if err != nil {
		h.Logger.Printf("submit failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to start analysis")
	}
	return c.JSON(http.StatusAccepted, map[string]string{"task_id": taskID})
}

type progressPayload struct {
	Progress  float64      `json:"progress"`
	Message   string       `json:"message"`
	Status    cache.Status `json:"status"`
	ProjectID *int64       `json:"project_id,omitempty"`
}

// stream follows a task's progress via Server-Sent Events. Authorization
// against the record's owner happens once, before the first event.
func (h *AnalysisHandler) stream(c echo.Context) error {
	req := c.Request()
	ctx := req.Context()
	taskID := strings.TrimSpace(c.QueryParam("task_id"))
	if taskID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task_id required")
	}

	rec, ok, err := h.Progress.Get(ctx, taskID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	userID, hasUser := userIDFromContext(c)
	if rec.OwnerHost != c.RealIP() {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}
	if rec.OwnerUserID != nil && (!hasUser || *rec.OwnerUserID != userID) {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}

	send := func(v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := resp.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}
	sendSnapshot := func(rec cache.ProgressRecord) error {
		return send(progressPayload{
			Progress:  rec.Progress,
			Message:   rec.Message,
			Status:    rec.Status,
			ProjectID: rec.ProjectID,
		})
	}

	if err := sendSnapshot(rec); err != nil {
		return nil
	}
	if rec.Status.Terminal() {
		return nil
	}

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(streamTimeout)
	defer deadline.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			_ = send(map[string]string{"error": "분석 시간이 초과되었습니다."})
			return nil
		case <-ticker.C:
			rec, ok, err := h.Progress.Get(ctx, taskID)
			if err != nil {
				h.Logger.Printf("progress read for task %s failed: %v", taskID, err)
				_ = send(map[string]string{"error": "진행 상태를 조회할 수 없습니다."})
				return nil
			}
			if !ok {
				_ = send(map[string]string{"error": "분석 작업을 찾을 수 없습니다."})
				return nil
			}
			if err := sendSnapshot(rec); err != nil {
				return nil
			}
			if rec.Status.Terminal() {
				return nil
			}
		}
	}
}
