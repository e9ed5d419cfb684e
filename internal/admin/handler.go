// AngelaMos | 2026
// handler.go

package admin

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/foxmentors/portal/internal/booking"
	"github.com/foxmentors/portal/internal/config"
	"github.com/foxmentors/portal/internal/core"
	"github.com/foxmentors/portal/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	bookings   *booking.Service
	portal     config.PortalConfig
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	dbPing     func(ctx context.Context) error
	redisPing  func(ctx context.Context) error
}

type HandlerConfig struct {
	Bookings   *booking.Service
	Portal     config.PortalConfig
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	DBPing     func(ctx context.Context) error
	RedisPing  func(ctx context.Context) error
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		bookings:   cfg.Bookings,
		portal:     cfg.Portal,
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		dbPing:     cfg.DBPing,
		redisPing:  cfg.RedisPing,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/bookings", h.ListBookings)
		r.Get("/bookings/export", h.ExportBookings)
		r.Get("/stats", h.GetStats)
	})
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	params, err := h.listParams(r)
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	actor := booking.ActorFromSession(middleware.GetSession(r.Context()))

	bookings, total, err := h.bookings.ListAll(r.Context(), actor, params)
	if err != nil {
		booking.WriteError(w, err)
		return
	}

	core.Paginated(
		w,
		booking.ToResponseList(bookings),
		params.Page,
		params.PageSize,
		total,
	)
}

// ExportBookings streams the whole queue, honouring the status filter, as
// an XLSX workbook.
func (h *Handler) ExportBookings(w http.ResponseWriter, r *http.Request) {
	params, err := h.listParams(r)
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	actor := booking.ActorFromSession(middleware.GetSession(r.Context()))

	all, err := h.collectBookings(r.Context(), actor, params.Status)
	if err != nil {
		booking.WriteError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := WriteBookingsXLSX(&buf, h.portal.ExportSheetName, all); err != nil {
		core.InternalServerError(w, err)
		return
	}

	filename := fmt.Sprintf("bookings-%s.xlsx", time.Now().UTC().Format("20060102"))

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // client may have gone away
	_, _ = buf.WriteTo(w)
}

func (h *Handler) collectBookings(
	ctx context.Context,
	actor booking.Actor,
	status booking.Status,
) ([]booking.Booking, error) {
	params := booking.ListParams{
		Page:     1,
		PageSize: h.portal.MaxPageSize,
		Status:   status,
	}

	var all []booking.Booking
	for {
		page, total, err := h.bookings.ListAll(ctx, actor, params)
		if err != nil {
			return nil, err
		}

		all = append(all, page...)
		if len(page) == 0 || len(all) >= total {
			return all, nil
		}

		params.Page++
	}
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bookingStats, err := h.bookings.Stats(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, StatsResponse{
		Bookings: *bookingStats,
		Database: DatabaseStatus{
			Healthy: pingHealthy(ctx, h.dbPing),
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: pingHealthy(ctx, h.redisPing),
			Stats:   h.getRedisStats(),
		},
	})
}

func (h *Handler) listParams(r *http.Request) (booking.ListParams, error) {
	params := booking.ListParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", h.portal.DefaultPageSize),
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := booking.ParseStatus(raw)
		if err != nil {
			return params, err
		}
		params.Status = status
	}

	params.Normalize(h.portal.DefaultPageSize, h.portal.MaxPageSize)
	return params, nil
}

func pingHealthy(ctx context.Context, ping func(context.Context) error) bool {
	if ping == nil {
		return false
	}
	return ping(ctx) == nil
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
	}
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
