// AngelaMos | 2026
// handler_test.go

package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"

	"github.com/foxmentors/portal/internal/booking"
	"github.com/foxmentors/portal/internal/config"
	"github.com/foxmentors/portal/internal/core"
	"github.com/foxmentors/portal/internal/middleware"
)

type queueRepository struct {
	rows []booking.Booking
}

func (q *queueRepository) Create(ctx context.Context, b *booking.Booking) error { return nil }

func (q *queueRepository) GetByID(ctx context.Context, id int64) (*booking.Booking, error) {
	return nil, core.ErrNotFound
}

func (q *queueRepository) CompareAndSwap(ctx context.Context, u booking.StatusUpdate) (bool, error) {
	return false, nil
}

func (q *queueRepository) List(ctx context.Context, params booking.ListParams) ([]booking.Booking, int, error) {
	var filtered []booking.Booking
	for _, b := range q.rows {
		if params.Status == "" || b.Status == params.Status {
			filtered = append(filtered, b)
		}
	}

	start := min(params.Offset(), len(filtered))
	end := min(start+params.PageSize, len(filtered))
	return filtered[start:end], len(filtered), nil
}

func (q *queueRepository) ListByStudentEmail(ctx context.Context, email string) ([]booking.Booking, error) {
	return nil, nil
}

func (q *queueRepository) ListByMentor(ctx context.Context, mentorID string, status booking.Status) ([]booking.Booking, error) {
	return nil, nil
}

func (q *queueRepository) CountByStatus(ctx context.Context) (map[booking.Status]int, error) {
	counts := map[booking.Status]int{}
	for _, b := range q.rows {
		counts[b.Status]++
	}
	return counts, nil
}

type noDirectory struct{}

func (noDirectory) LookupPerson(ctx context.Context, id string) (*booking.Person, error) {
	return nil, core.ErrNotFound
}

func sampleQueue() []booking.Booking {
	mentor := "Arjun"
	mentorID := "00000000-0000-0000-0000-0000000000b1"
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	statuses := []booking.Status{
		booking.StatusPending,
		booking.StatusVerified,
		booking.StatusScheduled,
		booking.StatusPending,
		booking.StatusCompleted,
	}

	rows := make([]booking.Booking, 0, len(statuses))
	for i, st := range statuses {
		b := booking.Booking{
			ID:           int64(i + 1),
			StudentName:  "Student",
			StudentEmail: "s@x.com",
			Status:       st,
			Version:      1,
			CreatedAt:    created,
			UpdatedAt:    created,
		}
		if st == booking.StatusScheduled || st == booking.StatusCompleted {
			b.MentorID = &mentorID
			b.MentorName = &mentor
		}
		rows = append(rows, b)
	}
	return rows
}

func passthrough(next http.Handler) http.Handler { return next }

func newTestRouter(sessionRole core.Role) http.Handler {
	svc := booking.NewService(&queueRepository{rows: sampleQueue()}, noDirectory{})

	h := NewHandler(HandlerConfig{
		Bookings: svc,
		Portal: config.PortalConfig{
			DefaultPageSize: 2,
			MaxPageSize:     2,
			ExportSheetName: "Bookings",
		},
		DBPing:    func(ctx context.Context) error { return nil },
		RedisPing: func(ctx context.Context) error { return errors.New("down") },
	})

	withSession := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := middleware.Session{UserID: "u-1", Role: sessionRole}
			next.ServeHTTP(w, r.WithContext(middleware.WithSession(r.Context(), s)))
		})
	}

	r := chi.NewRouter()
	h.RegisterRoutes(r, withSession, passthrough)
	return r
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestListBookingsPaginated(t *testing.T) {
	rec := get(newTestRouter(core.RoleAdmin), "/admin/bookings?page=2&status=pending")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data []booking.Response `json:"data"`
		Meta core.Meta          `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Meta.Total != 2 || len(resp.Data) != 0 {
		t.Fatalf("expected empty second page of 2 pending, got %d rows, meta %+v", len(resp.Data), resp.Meta)
	}
}

func TestListBookingsHugePage(t *testing.T) {
	rec := get(newTestRouter(core.RoleAdmin), "/admin/bookings?page=100000000000000000&page_size=100")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with an empty page, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data []booking.Response `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 0 {
		t.Fatalf("expected no rows, got %d", len(resp.Data))
	}
}

func TestListBookingsBadStatus(t *testing.T) {
	rec := get(newTestRouter(core.RoleAdmin), "/admin/bookings?status=cancelled")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListBookingsRequiresAdmin(t *testing.T) {
	rec := get(newTestRouter(core.RoleMentor), "/admin/bookings")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestExportBookings(t *testing.T) {
	rec := get(newTestRouter(core.RoleAdmin), "/admin/bookings/export")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment;") {
		t.Fatalf("expected attachment, got %q", rec.Header().Get("Content-Disposition"))
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Bookings")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}

	// header plus every booking across all pages
	if len(rows) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][4] != "Mentor" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][4] != booking.UnassignedMentor {
		t.Fatalf("expected unassigned label, got %q", rows[1][4])
	}
	if rows[3][4] != "Arjun" || rows[3][3] != "Scheduled" {
		t.Fatalf("unexpected scheduled row %v", rows[3])
	}
	if rows[1][7] != "2026-03-01 09:30:00" {
		t.Fatalf("unexpected timestamp %q", rows[1][7])
	}
}

func TestExportBookingsFiltered(t *testing.T) {
	var buf bytes.Buffer
	rec := get(newTestRouter(core.RoleAdmin), "/admin/bookings/export?status=completed")
	buf.Write(rec.Body.Bytes())

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Bookings")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 2 || rows[1][3] != "Completed" {
		t.Fatalf("expected one completed booking, got %v", rows)
	}
}

func TestGetStats(t *testing.T) {
	rec := get(newTestRouter(core.RoleAdmin), "/admin/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data StatsResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Data.Bookings.Total != 5 || resp.Data.Bookings.ByStatus[booking.StatusPending] != 2 {
		t.Fatalf("unexpected booking stats %+v", resp.Data.Bookings)
	}
	if !resp.Data.Database.Healthy || resp.Data.Redis.Healthy {
		t.Fatalf("unexpected health %+v / %+v", resp.Data.Database, resp.Data.Redis)
	}
}
