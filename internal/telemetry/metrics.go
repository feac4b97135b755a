// Package telemetry provides observability for the banking assistant.
package telemetry

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Metrics collects Prometheus-style metrics for the banking assistant.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	messagesTotal  map[string]int64 // key: channel,outcome
	toolCallsTotal map[string]int64 // key: tool,status
	authTotal      map[string]int64 // key: outcome
	tokensTotal    map[string]int64 // key: type

	// Histograms (simplified: bucket counts + sum + count)
	messageDurations map[string]*histogram // key: channel
}

type histogram struct {
	buckets []float64
	counts  []int64
	sum     float64
	count   int64
}

var defaultBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

func newHistogram() *histogram {
	return &histogram{
		buckets: defaultBuckets,
		counts:  make([]int64, len(defaultBuckets)+1), // +1 for +Inf
	}
}

func (h *histogram) observe(value float64) {
	h.sum += value
	h.count++
	for i, b := range h.buckets {
		if value <= b {
			h.counts[i]++
		}
	}
	h.counts[len(h.buckets)]++ // +Inf always counts
}

// NewMetrics creates a new Metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		messagesTotal:    make(map[string]int64),
		toolCallsTotal:   make(map[string]int64),
		authTotal:        make(map[string]int64),
		tokensTotal:      make(map[string]int64),
		messageDurations: make(map[string]*histogram),
	}
}

// RecordMessage records a processed chat message.
func (m *Metrics) RecordMessage(channel, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messagesTotal[fmt.Sprintf("%s,%s", channel, outcome)]++

	h, ok := m.messageDurations[channel]
	if !ok {
		h = newHistogram()
		m.messageDurations[channel] = h
	}
	h.observe(duration.Seconds())
}

// RecordToolCall records a backend tool invocation.
func (m *Metrics) RecordToolCall(tool, status string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolCallsTotal[fmt.Sprintf("%s,%s", tool, status)]++
}

// RecordAuth records an authentication attempt outcome.
func (m *Metrics) RecordAuth(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authTotal[outcome]++
}

// RecordTokens records LLM token consumption.
func (m *Metrics) RecordTokens(inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokensTotal["input"] += int64(inputTokens)
	m.tokensTotal["output"] += int64(outputTokens)
}

// Handler returns an HTTP handler that serves Prometheus-format metrics.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		var sb strings.Builder

		sb.WriteString("# HELP bankassist_messages_total Total chat messages processed\n")
		sb.WriteString("# TYPE bankassist_messages_total counter\n")
		for _, key := range sortedKeys(m.messagesTotal) {
			parts := strings.SplitN(key, ",", 2)
			fmt.Fprintf(&sb, "bankassist_messages_total{channel=%q,outcome=%q} %d\n",
				parts[0], parts[1], m.messagesTotal[key])
		}
		sb.WriteString("\n")

		sb.WriteString("# HELP bankassist_message_duration_seconds Message processing duration\n")
		sb.WriteString("# TYPE bankassist_message_duration_seconds histogram\n")
		for _, channel := range sortedMapKeys(m.messageDurations) {
			h := m.messageDurations[channel]
			cumulative := int64(0)
			for i, b := range h.buckets {
				cumulative += h.counts[i]
				fmt.Fprintf(&sb, "bankassist_message_duration_seconds_bucket{channel=%q,le=\"%.3g\"} %d\n",
					channel, b, cumulative)
			}
			cumulative += h.counts[len(h.buckets)]
			fmt.Fprintf(&sb, "bankassist_message_duration_seconds_bucket{channel=%q,le=\"+Inf\"} %d\n",
				channel, cumulative)
			fmt.Fprintf(&sb, "bankassist_message_duration_seconds_sum{channel=%q} %.6f\n",
				channel, h.sum)
			fmt.Fprintf(&sb, "bankassist_message_duration_seconds_count{channel=%q} %d\n",
				channel, h.count)
		}
		sb.WriteString("\n")

		sb.WriteString("# HELP bankassist_tool_calls_total Tool call count\n")
		sb.WriteString("# TYPE bankassist_tool_calls_total counter\n")
		for _, key := range sortedKeys(m.toolCallsTotal) {
			parts := strings.SplitN(key, ",", 2)
			fmt.Fprintf(&sb, "bankassist_tool_calls_total{tool=%q,status=%q} %d\n",
				parts[0], parts[1], m.toolCallsTotal[key])
		}
		sb.WriteString("\n")

		sb.WriteString("# HELP bankassist_auth_total Authentication attempt outcomes\n")
		sb.WriteString("# TYPE bankassist_auth_total counter\n")
		for _, key := range sortedKeys(m.authTotal) {
			fmt.Fprintf(&sb, "bankassist_auth_total{outcome=%q} %d\n", key, m.authTotal[key])
		}
		sb.WriteString("\n")

		sb.WriteString("# HELP bankassist_tokens_total LLM tokens consumed\n")
		sb.WriteString("# TYPE bankassist_tokens_total counter\n")
		for _, key := range sortedKeys(m.tokensTotal) {
			fmt.Fprintf(&sb, "bankassist_tokens_total{type=%q} %d\n", key, m.tokensTotal[key])
		}

		_, _ = w.Write([]byte(sb.String()))
	})
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedMapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
