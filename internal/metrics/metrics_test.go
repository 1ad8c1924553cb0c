package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := InstrumentHandler(mux)

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "GET /items/{id}", "418"))
	for _, id := range []string{"a", "b", "c"} {
		req := httptest.NewRequest(http.MethodGet, "/items/"+id, nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "GET /items/{id}", "418"))

	if after-before != 3 {
		t.Errorf("requests counted = %v, want 3", after-before)
	}
}

func TestRecorders(t *testing.T) {
	pages := testutil.ToFloat64(pagesFetched)
	records := testutil.ToFloat64(recordsFetched)
	RecordPage(4)
	if got := testutil.ToFloat64(pagesFetched) - pages; got != 1 {
		t.Errorf("pages = %v, want 1", got)
	}
	if got := testutil.ToFloat64(recordsFetched) - records; got != 4 {
		t.Errorf("records = %v, want 4", got)
	}

	done := testutil.ToFloat64(submissions.WithLabelValues("done"))
	RecordSubmission("done")
	if got := testutil.ToFloat64(submissions.WithLabelValues("done")) - done; got != 1 {
		t.Errorf("submissions = %v, want 1", got)
	}

	SetActiveSessions(7)
	if got := testutil.ToFloat64(sessionsActive); got != 7 {
		t.Errorf("sessions = %v, want 7", got)
	}
}

func TestHandler(t *testing.T) {
	RecordInvalidation()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "gallery_pagination_invalidations_total") {
		t.Error("invalidation counter missing from exposition")
	}
}
