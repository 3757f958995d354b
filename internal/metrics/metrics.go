package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PostsGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ambitious_npc_posts_generated_total",
		Help: "Posts generated and queued, by ai model",
	}, []string{"model"})
	GenerationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ambitious_npc_generation_failures_total",
		Help: "Generation slots that failed, by stage",
	}, []string{"stage"})
	Images = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ambitious_npc_images_total",
		Help: "Image pipeline outcomes",
	}, []string{"outcome"})
	EngagementActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ambitious_npc_engagement_actions_total",
		Help: "Autonomous engagement actions by type and status",
	}, []string{"action", "status"})
	ProviderRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ambitious_provider_requests_total",
		Help: "Upstream AI provider requests by provider and result",
	}, []string{"provider", "result"})
	ProviderRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ambitious_provider_retries_total",
		Help: "Upstream AI provider retry attempts",
	}, []string{"provider"})
	QueuePublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ambitious_npc_queue_publish_total",
		Help: "Queue items promoted to posts by result",
	}, []string{"result"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ambitious_command_runs_total",
		Help: "Commands and jobs started",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ambitious_command_errors_total",
		Help: "Commands and jobs that returned an error",
	}, []string{"command"})
	CommandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ambitious_command_duration_seconds",
		Help:    "Command and job duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(PostsGenerated, GenerationFailures, Images, EngagementActions,
		ProviderRequests, ProviderRetries, QueuePublished, CommandRuns, CommandErrors, CommandDuration)
}

// Handler serves the registered collectors.
func Handler() http.Handler { return promhttp.Handler() }

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, mux) }()
}

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }

// ObserveCommandDuration records a run duration.
func ObserveCommandDuration(cmd string, start time.Time) {
	CommandDuration.WithLabelValues(cmd).Observe(time.Since(start).Seconds())
}

func IncPostGenerated(model string)     { PostsGenerated.WithLabelValues(model).Inc() }
func IncGenerationFailure(stage string) { GenerationFailures.WithLabelValues(stage).Inc() }
func IncImage(outcome string)           { Images.WithLabelValues(outcome).Inc() }
func IncEngagement(action, status string) {
	EngagementActions.WithLabelValues(action, status).Inc()
}
func IncProviderRequest(provider, result string) {
	ProviderRequests.WithLabelValues(provider, result).Inc()
}
func IncProviderRetry(provider string) { ProviderRetries.WithLabelValues(provider).Inc() }
func IncPublish(result string)         { QueuePublished.WithLabelValues(result).Inc() }
