package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposure(t *testing.T) {
	IncPostGenerated("openai")
	IncGenerationFailure("provider")
	IncImage("skipped")
	IncEngagement("like", "completed")
	IncProviderRequest("claude", "ok")
	IncProviderRetry("claude")
	IncPublish("published")
	IncCommandRun("engage")
	IncCommandError("engage")
	ObserveCommandDuration("engage", time.Now().Add(-1500*time.Millisecond))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, m := range []string{
		"ambitious_npc_posts_generated_total",
		"ambitious_npc_generation_failures_total",
		"ambitious_npc_images_total",
		"ambitious_npc_engagement_actions_total",
		"ambitious_provider_requests_total",
		"ambitious_provider_retries_total",
		"ambitious_npc_queue_publish_total",
		"ambitious_command_runs_total",
		"ambitious_command_duration_seconds",
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metric %s in body", m)
		}
	}
}
