package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRunFinished(t *testing.T) {
	m := New()
	m.RunStarted()
	if got := testutil.ToFloat64(m.inFlight); got != 1 {
		t.Errorf("in flight = %v", got)
	}
	at := time.Unix(1700000000, 0)
	m.RunFinished("complete", 2*time.Second, at)
	m.RunFinished("error", time.Second, at.Add(time.Hour))

	if got := testutil.ToFloat64(m.runs.WithLabelValues("complete")); got != 1 {
		t.Errorf("complete runs = %v", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("error")); got != 1 {
		t.Errorf("error runs = %v", got)
	}
	if got := testutil.ToFloat64(m.lastSuccess); got != 1700000000 {
		t.Errorf("last success = %v", got)
	}
	if got := testutil.ToFloat64(m.inFlight); got != 0 {
		t.Errorf("in flight = %v", got)
	}
}

func TestDocumentsAndAttachments(t *testing.T) {
	m := New()
	m.Document("created")
	m.Document("created")
	m.Document("skipped")
	m.AttachmentsWritten(3)
	m.AttachmentsWritten(0)

	if got := testutil.ToFloat64(m.documents.WithLabelValues("created")); got != 2 {
		t.Errorf("created = %v", got)
	}
	if got := testutil.ToFloat64(m.attachments); got != 3 {
		t.Errorf("attachments = %v", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RunStarted()
	m.RunFinished("complete", time.Second, time.Now())
	m.Document("created")
	m.AttachmentsWritten(1)
}

func TestHandler(t *testing.T) {
	m := New()
	m.Document("updated")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `granola_sync_documents_total{action="updated"} 1`) {
		t.Errorf("metrics output missing documents counter:\n%s", body)
	}
}
