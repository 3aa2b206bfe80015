package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interview_gateway_active_sessions",
		Help: "Number of sessions held in the session store",
	})

	feedbackCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_feedback_cycles_total",
		Help: "Total number of incremental feedback cycles",
	}, []string{"status"}) // success, error, suppressed, not_found

	// Reasoning service metrics
	reasoningRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_reasoning_requests_total",
		Help: "Total number of reasoning service requests",
	}, []string{"provider", "status"})

	reasoningLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "interview_gateway_reasoning_latency_seconds",
		Help:    "Reasoning service latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}, []string{"provider"})

	// Speech service metrics
	speechRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_speech_requests_total",
		Help: "Total number of speech service requests",
	}, []string{"provider", "status"})

	speechLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "interview_gateway_speech_latency_seconds",
		Help:    "Time until the speech service starts answering, in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	}, []string{"provider"})

	// Audio relay metrics
	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interview_gateway_active_audio_streams",
		Help: "Number of open audio relay streams",
	})

	streamCloses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_audio_stream_closes_total",
		Help: "Audio relay streams by close reason",
	}, []string{"reason"})

	audioBytesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_gateway_audio_bytes_total",
		Help: "Total audio bytes relayed to clients",
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "interview_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_gateway_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// CallTimer tracks the latency of one upstream call
type CallTimer struct {
	provider  string
	startTime time.Time
	mu        sync.Mutex
	done      bool
}

// StartReasoningCall starts timing a reasoning service call
func StartReasoningCall(provider string) *CallTimer {
	return &CallTimer{provider: provider, startTime: time.Now()}
}

// StartSpeechCall starts timing a speech service call
func StartSpeechCall(provider string) *CallTimer {
	return &CallTimer{provider: provider, startTime: time.Now()}
}

func (c *CallTimer) finish() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return 0, false
	}
	c.done = true
	return time.Since(c.startTime).Seconds(), true
}

// EndReasoning records the outcome of a reasoning call. Only the first call counts.
func (c *CallTimer) EndReasoning(success bool) {
	latency, ok := c.finish()
	if !ok {
		return
	}
	reasoningLatency.WithLabelValues(c.provider).Observe(latency)
	reasoningRequests.WithLabelValues(c.provider, statusLabel(success)).Inc()
}

// EndSpeech records the outcome of a speech call. Only the first call counts.
func (c *CallTimer) EndSpeech(success bool) {
	latency, ok := c.finish()
	if !ok {
		return
	}
	speechLatency.WithLabelValues(c.provider).Observe(latency)
	speechRequests.WithLabelValues(c.provider, statusLabel(success)).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// SetActiveSessions updates the session gauge
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// RecordFeedbackCycle counts a feedback cycle by outcome
func RecordFeedbackCycle(status string) {
	feedbackCycles.WithLabelValues(status).Inc()
}

// StreamOpened marks an audio relay stream as open and returns a func that closes it with a reason
func StreamOpened() func(reason string) {
	activeStreams.Inc()
	var once sync.Once
	return func(reason string) {
		once.Do(func() {
			activeStreams.Dec()
			streamCloses.WithLabelValues(reason).Inc()
		})
	}
}

// RecordAudioBytes records audio bytes relayed to a client
func RecordAudioBytes(bytes int) {
	audioBytesRelayed.Add(float64(bytes))
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
