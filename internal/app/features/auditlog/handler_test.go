package auditlog_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/fundhub/internal/app/features/auditlog"
	"github.com/dalemusser/fundhub/internal/app/store/audit"
	"github.com/dalemusser/fundhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) (chi.Router, *audit.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	sm := testutil.NewSessionManager(t)
	h := auditlog.NewHandler(db, zap.NewNop())

	r := chi.NewRouter()
	r.Route("/admin", func(ar chi.Router) {
		ar.Use(sm.RequireAdmin)
		auditlog.MountAdminRoutes(ar, h)
	})
	return r, audit.New(db)
}

type pageBody struct {
	Items     []audit.Event `json:"items"`
	Total     int           `json:"total"`
	Start     int           `json:"start"`
	End       int           `json:"end"`
	NextStart int           `json:"next_start"`
}

func get(t *testing.T, r chi.Router, target string) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, target, testutil.AdminUser()))
	return rec
}

func TestServeList_Filters(t *testing.T) {
	r, store := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	events := []audit.Event{
		{Timestamp: day.Add(-48 * time.Hour), Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, Actor: "ana@example.com", Success: true},
		{Timestamp: day, Category: audit.CategoryAdmin, EventType: audit.EventDonationCorrected, Actor: testutil.AdminEmail, Target: "d1", Success: true},
		{Timestamp: day.Add(time.Hour), Category: audit.CategoryAdmin, EventType: audit.EventCampaignDeleted, Actor: testutil.AdminEmail, Target: "c1", Success: true},
		{Timestamp: day.Add(24 * time.Hour), Category: audit.CategoryAuth, EventType: audit.EventLoginFailed, Success: false},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"all", "/admin/audit", 4},
		{"category all", "/admin/audit?category=all", 4},
		{"admin category", "/admin/audit?category=admin", 2},
		{"event type", "/admin/audit?event_type=login_failed", 1},
		{"actor folded", "/admin/audit?actor=ADMIN@test.com", 2},
		{"target", "/admin/audit?target=c1", 1},
		{"single day", "/admin/audit?start_date=2026-03-10&end_date=2026-03-10", 2},
		{"from date", "/admin/audit?start_date=2026-03-10", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, r, tt.target)
			rec.AssertStatus(t, http.StatusOK)
			var got pageBody
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode %s: %v", rec.Body.String(), err)
			}
			if got.Total != tt.want || len(got.Items) != tt.want {
				t.Errorf("total=%d items=%d, want %d", got.Total, len(got.Items), tt.want)
			}
		})
	}
}

func TestServeList_Paging(t *testing.T) {
	r, store := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		if err := store.Log(ctx, audit.Event{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Category:  audit.CategoryAuth,
			EventType: audit.EventLogout,
		}); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	rec := get(t, r, "/admin/audit?start=3&limit=2")
	rec.AssertStatus(t, http.StatusOK)
	var got pageBody
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Items) != 2 || got.Start != 3 || got.End != 4 || got.NextStart != 5 || got.Total != 5 {
		t.Errorf("page = %d items, %d-%d of %d, next %d", len(got.Items), got.Start, got.End, got.Total, got.NextStart)
	}
	if !got.Items[0].Timestamp.After(got.Items[1].Timestamp) {
		t.Error("events should be newest first")
	}
}

func TestServeList_BadFilters(t *testing.T) {
	r, _ := newRouter(t)

	for _, target := range []string{
		"/admin/audit?start_date=03/10/2026",
		"/admin/audit?end_date=yesterday",
		"/admin/audit?category=security",
	} {
		t.Run(target, func(t *testing.T) {
			get(t, r, target).AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestServeList_RequiresAdmin(t *testing.T) {
	r, _ := newRouter(t)
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/admin/audit", testutil.OrganizerUser("org@example.com")))
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestServeCategories(t *testing.T) {
	r, _ := newRouter(t)
	rec := get(t, r, "/admin/audit/categories")
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"value":"admin"`)
	rec.AssertContains(t, audit.EventWithdrawalDecided)
}
