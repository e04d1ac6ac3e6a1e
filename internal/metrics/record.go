package metrics

import (
	"strconv"
	"time"
)

// RecordExecution records one protocol execution
func RecordExecution(kind, outcome string, d time.Duration) {
	executions.WithLabelValues(kind, outcome).Inc()
	executionDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordAnnotations adds the counts produced for one document
func RecordAnnotations(tokens, markables, relations, skipped int) {
	annotations.WithLabelValues("token").Add(float64(tokens))
	annotations.WithLabelValues("markable").Add(float64(markables))
	annotations.WithLabelValues("relation").Add(float64(relations))
	sentencesSkipped.Add(float64(skipped))
}

// RecordCacheLookup records a result cache hit or miss
func RecordCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

// RecordHTTPRequest records a served HTTP request
func RecordHTTPRequest(route string, code int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// RecordRateLimited records a rejected HTTP request
func RecordRateLimited() {
	rateLimited.Inc()
}

// RecordLLMRequest records one LLM extraction call
func RecordLLMRequest(provider string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	llmRequests.WithLabelValues(provider, status).Inc()
	llmDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordBatchFile records one file handled in directory or watch mode
func RecordBatchFile(err error) {
	if err != nil {
		batchFiles.WithLabelValues("error").Inc()
		return
	}
	batchFiles.WithLabelValues("ok").Inc()
}
