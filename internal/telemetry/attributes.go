// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by relay spans.
const (
	JobIDKey       = "job.id"
	JobStatusKey   = "job.status"
	JobDurationKey = "job.duration_ms"

	DownloadFormatKey  = "download.format"
	DownloadQualityKey = "download.quality"
	DownloadCookiesKey = "download.cookies"

	ProcessPIDKey      = "process.pid"
	ProcessExitCodeKey = "process.exit_code"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// DownloadAttributes describes a download request. Cookie contents never
// leave the process; only their presence is recorded.
func DownloadAttributes(jobID, format, quality string, hasCookies bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(DownloadFormatKey, format),
		attribute.Bool(DownloadCookiesKey, hasCookies),
	}
	if jobID != "" {
		attrs = append(attrs, attribute.String(JobIDKey, jobID))
	}
	if quality != "" {
		attrs = append(attrs, attribute.String(DownloadQualityKey, quality))
	}
	return attrs
}

// JobAttributes describes a finished job.
func JobAttributes(jobID, status string, durationMS int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobIDKey, jobID),
		attribute.String(JobStatusKey, status),
		attribute.Int64(JobDurationKey, durationMS),
	}
}

// ProcessAttributes describes a child process outcome.
func ProcessAttributes(pid, exitCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(ProcessPIDKey, pid),
		attribute.Int(ProcessExitCodeKey, exitCode),
	}
}

// ErrorAttributes marks a span as failed with a coarse error class.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
