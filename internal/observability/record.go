package observability

import (
	"strconv"
	"time"
)

// All Record* methods are safe on a nil receiver so callers can run without metrics.

// RecordEventsLoaded adds n loaded events for source.
func (m *Metrics) RecordEventsLoaded(source string, n int) {
	if m == nil {
		return
	}
	m.EventsLoaded.WithLabelValues(source).Add(float64(n))
}

// RecordSkipped adds skipped record counts keyed by reason.
func (m *Metrics) RecordSkipped(reasons map[string]int) {
	if m == nil {
		return
	}
	for reason, n := range reasons {
		m.RecordsSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordFeedMessage counts one trade feed message.
func (m *Metrics) RecordFeedMessage(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.FeedMessages.WithLabelValues(result).Inc()
}

// RecordRPCLatency records RPC call latency.
func (m *Metrics) RecordRPCLatency(method string, d time.Duration) {
	if m == nil {
		return
	}
	m.RPCCallLatency.WithLabelValues(method).Observe(d.Seconds())
}

// RecordPartition records the outcome of scanning one partition.
func (m *Metrics) RecordPartition(windowSeconds, windowsChecked int, d time.Duration) {
	if m == nil {
		return
	}
	label := windowLabel(windowSeconds)
	m.WindowsChecked.WithLabelValues(label).Add(float64(windowsChecked))
	m.PartitionDuration.WithLabelValues(label).Observe(d.Seconds())
}

// RecordRejection counts a candidate rejected at stage.
func (m *Metrics) RecordRejection(stage string) {
	if m == nil {
		return
	}
	m.StageRejections.WithLabelValues(stage).Inc()
}

// RecordDetection counts a confirmed sandwich.
func (m *Metrics) RecordDetection(windowSeconds int, confidence string) {
	if m == nil {
		return
	}
	m.Detections.WithLabelValues(windowLabel(windowSeconds), confidence).Inc()
}

// RecordPartitionsSkipped adds n partitions skipped on deadline.
func (m *Metrics) RecordPartitionsSkipped(n int) {
	if m == nil || n == 0 {
		return
	}
	m.PartitionsSkipped.Add(float64(n))
}

// RecordRun records a finished detection run.
func (m *Metrics) RecordRun(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
	if status == StatusSuccess || status == StatusPartial {
		m.LastSuccessfulRun.Set(float64(time.Now().Unix()))
	}
}

// RecordPublished counts detections handed to the publisher.
func (m *Metrics) RecordPublished(n int, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.DetectionsPublished.WithLabelValues(result).Add(float64(n))
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// Run status labels
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

func windowLabel(windowSeconds int) string {
	return strconv.Itoa(windowSeconds) + "s"
}
