package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Dest0re/backend-school2022/internal/application/handlers"
	"github.com/Dest0re/backend-school2022/internal/domain/entities"
)

// importPayload is the wire shape of one import batch.
type importPayload struct {
	Items      []entities.ImportItem `json:"items"`
	UpdateDate string                `json:"updateDate"`
}

// HandleImports applies one import batch. The response carries no body
// beyond the terminal signal: 200 on commit, 400 on any violation.
func HandleImports(h *handlers.ImportHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload importPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			writeError(c, entities.ErrBadRequest)
			return
		}

		updateDate := time.Now().UTC()
		if payload.UpdateDate != "" {
			parsed, err := entities.ParseDate(payload.UpdateDate)
			if err != nil {
				writeError(c, err)
				return
			}
			updateDate = parsed
		}

		if err := h.HandleImport(c.Request.Context(), payload.Items, updateDate); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusOK)
	}
}

// HandleDelete removes a unit and its current descendants.
func HandleDelete(h *handlers.ImportHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.HandleDelete(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusOK)
	}
}

// HandleGetNode streams the aggregated subtree of a unit as one JSON object.
func HandleGetNode(h *handlers.NodeHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		sink := newStreamSink(c)
		err := h.HandleGet(c.Request.Context(), c.Param("id"), sink.emit)
		sink.finish(c, err)
	}
}

// HandleNodeStatistic streams the change timeline of a unit, optionally
// bounded by the dateStart/dateEnd query parameters.
func HandleNodeStatistic(h *handlers.NodeHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var win entities.Window
		if raw := c.Query("dateStart"); raw != "" {
			from, err := entities.ParseDate(raw)
			if err != nil {
				writeError(c, err)
				return
			}
			win.From = &from
		}
		if raw := c.Query("dateEnd"); raw != "" {
			to, err := entities.ParseDate(raw)
			if err != nil {
				writeError(c, err)
				return
			}
			win.To = &to
		}

		sink := newStreamSink(c)
		err := h.HandleStatistic(c.Request.Context(), c.Param("id"), win, sink.emit)
		sink.finish(c, err)
	}
}

// HandleSales streams the offers changed within 24 hours before the
// required date parameter.
func HandleSales(h *handlers.SalesHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, err := entities.ParseDate(c.Query("date"))
		if err != nil {
			writeError(c, err)
			return
		}

		sink := newStreamSink(c)
		err = h.HandleSales(c.Request.Context(), date, sink.emit)
		sink.finish(c, err)
	}
}

// streamSink adapts a fragment stream onto the HTTP response. The status
// line is decided by the first fragment: errors raised before any output
// still map onto a clean JSON error response, while an error mid-stream can
// only truncate — flushed fragments are not retractable.
type streamSink struct {
	c     *gin.Context
	wrote bool
}

func newStreamSink(c *gin.Context) *streamSink {
	return &streamSink{c: c}
}

func (s *streamSink) emit(fragment string) error {
	if !s.wrote {
		s.c.Header("Content-Type", "application/json; charset=utf-8")
		s.c.Status(http.StatusOK)
		s.wrote = true
	}
	if _, err := s.c.Writer.WriteString(fragment); err != nil {
		return err
	}
	s.c.Writer.Flush()
	return nil
}

func (s *streamSink) finish(c *gin.Context, err error) {
	if err == nil {
		return
	}
	if !s.wrote {
		writeError(c, err)
		return
	}
	// Too late for a status change; cut the connection so the client sees
	// the truncation instead of a well-formed-looking prefix.
	logger(c).Error("stream aborted", "error", err)
	c.Abort()
	if conn, _, hijackErr := c.Writer.Hijack(); hijackErr == nil {
		conn.Close()
	}
}

// writeError maps a domain error onto the wire error shape.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal error"

	switch {
	case errors.Is(err, entities.ErrBadRequest):
		status, message = http.StatusBadRequest, "Validation Failed"
	case errors.Is(err, entities.ErrNotFound):
		status, message = http.StatusNotFound, "Item not found"
	case errors.Is(err, entities.ErrTimeout):
		status, message = http.StatusServiceUnavailable, "Request timed out"
	default:
		logger(c).Error("request failed", "error", err)
	}

	c.JSON(status, gin.H{"code": status, "message": message})
}

// logger returns the request-scoped logger installed by RequestLogger.
func logger(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}
