package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rigwatch/pkg/orchestrator"
	"rigwatch/pkg/pipeline"
	"rigwatch/pkg/store"
	"rigwatch/pkg/telemetry"
)

type fakeBackend struct {
	snap   pipeline.Snapshot
	alerts *store.AlertLog
}

func (f *fakeBackend) Snapshot() pipeline.Snapshot { return f.snap }
func (f *fakeBackend) Alerts() *store.AlertLog     { return f.alerts }

func newFakeBackend() *fakeBackend {
	log := store.NewAlertLog(10)
	log.Append(orchestrator.Alert{
		ID:       "a1",
		Type:     "Hole Cleaning Risk",
		Severity: orchestrator.SeverityMedium,
	})
	return &fakeBackend{
		snap: pipeline.Snapshot{
			Reading:   telemetry.Reading{WOB: 25, MSE: 40000},
			UpdatedAt: time.Now(),
			Cycles:    4,
			Recommendations: []orchestrator.Recommendation{
				{Category: "Performance", Title: "Optimize Rate of Penetration"},
			},
		},
		alerts: log,
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReflectsFreshness(t *testing.T) {
	b := newFakeBackend()
	h := NewServer(b, "").Handler()

	if rec := get(t, h, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("fresh snapshot: code = %d", rec.Code)
	}

	b.snap.UpdatedAt = time.Now().Add(-2 * time.Minute)
	if rec := get(t, h, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("stale snapshot: code = %d", rec.Code)
	}
}

func TestLatestReturnsSnapshot(t *testing.T) {
	h := NewServer(newFakeBackend(), "").Handler()
	rec := get(t, h, "/api/v1/latest")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var snap pipeline.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Reading.MSE != 40000 || snap.Cycles != 4 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestLatestBeforeFirstCycle(t *testing.T) {
	b := &fakeBackend{alerts: store.NewAlertLog(10)}
	h := NewServer(b, "").Handler()
	if rec := get(t, h, "/api/v1/latest"); rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}

func TestAlertsEndpoint(t *testing.T) {
	h := NewServer(newFakeBackend(), "").Handler()
	rec := get(t, h, "/api/v1/alerts?limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var body struct {
		Alerts         []orchestrator.Alert `json:"alerts"`
		Unacknowledged int                  `json:"unacknowledged"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Alerts) != 1 || body.Unacknowledged != 1 {
		t.Fatalf("body = %+v", body)
	}

	if rec := get(t, h, "/api/v1/alerts?limit=nope"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: code = %d", rec.Code)
	}
}

func TestAcknowledgeWithoutSecretIsOpen(t *testing.T) {
	b := newFakeBackend()
	h := NewServer(b, "").Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/a1/acknowledge", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if b.alerts.Unacknowledged() != 0 {
		t.Fatal("alert not acknowledged")
	}
}

func TestAcknowledgeRequiresValidToken(t *testing.T) {
	const secret = "test-secret"
	h := NewServer(newFakeBackend(), secret).Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/a1/acknowledge", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: code = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/alerts/a1/acknowledge", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: code = %d", rec.Code)
	}

	token, err := IssueToken(secret, "driller", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/alerts/a1/acknowledge", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: code = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestAcknowledgeUnknownAlert(t *testing.T) {
	h := NewServer(newFakeBackend(), "").Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/nope/acknowledge", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestRecommendationsEndpoint(t *testing.T) {
	h := NewServer(newFakeBackend(), "").Handler()
	rec := get(t, h, "/api/v1/recommendations")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var body struct {
		Recommendations []orchestrator.Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Recommendations) != 1 {
		t.Fatalf("recommendations = %+v", body.Recommendations)
	}
}
