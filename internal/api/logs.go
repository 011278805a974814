package api

import (
	"net/http"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/93bx/vidsrc-stremio-addon/internal/logger"
)

// LogsProvider provides access to log data.
type LogsProvider interface {
	GetRecentLogs() []logger.LogEntry
	GetLogFilePath() string
}

// LogsHandlers serves recent log entries and the log file.
type LogsHandlers struct {
	provider LogsProvider
}

// NewLogsHandlers creates logs handlers.
func NewLogsHandlers(provider LogsProvider) *LogsHandlers {
	return &LogsHandlers{provider: provider}
}

// RegisterRoutes registers log routes on the given group.
func (h *LogsHandlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetRecentLogs)
	g.GET("/download", h.DownloadLogFile)
}

// GetRecentLogs returns buffered log entries, oldest first. An optional
// level query keeps only entries at that level; limit keeps the newest n.
// GET /api/v1/logs
func (h *LogsHandlers) GetRecentLogs(c echo.Context) error {
	logs := h.provider.GetRecentLogs()

	if level := c.QueryParam("level"); level != "" {
		filtered := make([]logger.LogEntry, 0, len(logs))
		for _, e := range logs {
			if e.Level == level {
				filtered = append(filtered, e)
			}
		}
		logs = filtered
	}
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n >= 0 && n < len(logs) {
		logs = logs[len(logs)-n:]
	}
	if logs == nil {
		logs = []logger.LogEntry{}
	}
	return c.JSON(http.StatusOK, logs)
}

// DownloadLogFile serves the current log file.
// GET /api/v1/logs/download
func (h *LogsHandlers) DownloadLogFile(c echo.Context) error {
	logPath := h.provider.GetLogFilePath()
	if logPath == "" {
		return echo.NewHTTPError(http.StatusNotFound, "no log file configured")
	}
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		return echo.NewHTTPError(http.StatusNotFound, "log file not found")
	}
	return c.Attachment(logPath, "vidsrc-addon.log")
}
