package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	papersRegisteredTotal       atomic.Uint64
	papersDuplicateTotal        atomic.Uint64
	papersProcessingFailedTotal atomic.Uint64
	papersAdoptedTotal          atomic.Uint64
	papersRemovedTotal          atomic.Uint64
	releaseFailedTotal          atomic.Uint64
	questionsAnsweredTotal      atomic.Uint64
	questionsFailedTotal        atomic.Uint64
	requestsThrottledTotal      atomic.Uint64

	processingDuration = newHistogram([]float64{1000, 5000, 15000, 30000, 60000, 120000, 300000, 600000})
	answerDuration     = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncPaperRegistered counts a paper persisted after successful processing.
func IncPaperRegistered() { papersRegisteredTotal.Add(1) }

// IncPaperDuplicate counts a registration rejected for its title.
func IncPaperDuplicate() { papersDuplicateTotal.Add(1) }

// IncPaperProcessingFailed counts a registration whose processing call failed.
func IncPaperProcessingFailed() { papersProcessingFailedTotal.Add(1) }

// IncPaperAdopted counts a paper added to a user's collection.
func IncPaperAdopted() { papersAdoptedTotal.Add(1) }

// IncPaperRemoved counts a paper deletion.
func IncPaperRemoved() { papersRemovedTotal.Add(1) }

// IncReleaseFailed counts best-effort release calls that failed.
func IncReleaseFailed() { releaseFailedTotal.Add(1) }

// IncQuestionAnswered counts a persisted exchange.
func IncQuestionAnswered() { questionsAnsweredTotal.Add(1) }

// IncQuestionFailed counts an ask whose answer call failed.
func IncQuestionFailed() { questionsFailedTotal.Add(1) }

// IncRequestThrottled counts a request rejected with 429.
func IncRequestThrottled() { requestsThrottledTotal.Add(1) }

// ObserveProcessingDurationMs records a process-paper call duration.
func ObserveProcessingDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	processingDuration.Observe(value)
}

// ObserveAnswerDurationMs records an answer call duration.
func ObserveAnswerDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	answerDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "papers_registered_total", "Papers registered after successful processing", papersRegisteredTotal.Load())
	writeCounter(&buf, "papers_duplicate_total", "Registrations rejected as duplicate titles", papersDuplicateTotal.Load())
	writeCounter(&buf, "papers_processing_failed_total", "Registrations whose processing failed", papersProcessingFailedTotal.Load())
	writeCounter(&buf, "papers_adopted_total", "Papers added to a collection from the shared registry", papersAdoptedTotal.Load())
	writeCounter(&buf, "papers_removed_total", "Papers removed", papersRemovedTotal.Load())
	writeCounter(&buf, "processing_release_failed_total", "Best-effort release calls that failed", releaseFailedTotal.Load())
	writeCounter(&buf, "questions_answered_total", "Questions answered and persisted", questionsAnsweredTotal.Load())
	writeCounter(&buf, "questions_failed_total", "Questions whose answer call failed", questionsFailedTotal.Load())
	writeCounter(&buf, "http_requests_throttled_total", "Requests rejected by the per-user quota", requestsThrottledTotal.Load())
	writeHistogram(&buf, "processing_duration_ms", "Process-paper call duration in milliseconds", processingDuration.Snapshot())
	writeHistogram(&buf, "answer_duration_ms", "Answer call duration in milliseconds", answerDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe adds value to the first bucket whose bound it fits under; Render
// accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
