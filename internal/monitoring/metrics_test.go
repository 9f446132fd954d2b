package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordPanic()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.PanicsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PanicsTotal))
}

func TestMetrics_Recorders(t *testing.T) {
	m := NewMetrics()

	m.RecordHTTPRequest("GET", "/v1/emails", "200", 10*time.Millisecond)
	m.RecordEmailsSynced("a@example.com", 3)
	m.RecordSyncFailure("a@example.com")
	m.ObserveNotification("slack", true, time.Millisecond)
	m.ObserveNotification("slack", false, time.Millisecond)
	m.RecordCategorized("spam")
	m.RecordReplyGenerated("friendly")
	m.RecordSearch("search", 4)
	m.UpdateWebsocketClients(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/v1/emails", "200")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EmailsSynced.WithLabelValues("a@example.com")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncFailures.WithLabelValues("a@example.com")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("slack", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("slack", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmailsCategorized.WithLabelValues("spam")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RepliesGenerated.WithLabelValues("friendly")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("search")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WebsocketClients))
}

func TestMetrics_HTTPHandler(t *testing.T) {
	m := NewMetrics()
	m.RecordCategorized("important")

	rec := httptest.NewRecorder()
	m.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `onebox_emails_categorized_total{category="important"} 1`)
}
