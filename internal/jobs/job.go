// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package jobs tracks download jobs: the progress record clients poll, the
// registry that owns those records and the stores that hold them.
package jobs

import "time"

// Status is the lifecycle tag of a job.
type Status string

const (
	StatusStarting    Status = "starting"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
)

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// IsActive reports whether a subprocess may still be working on the job.
func (s Status) IsActive() bool {
	return s == StatusStarting || s == StatusDownloading
}

// Job is the progress record returned by the progress endpoint.
// Filename and Error encode as null until they are set.
type Job struct {
	ID        string  `json:"id"`
	Progress  float64 `json:"progress"`
	Status    Status  `json:"status"`
	Filename  *string `json:"filename"`
	Error     *string `json:"error"`
	Timestamp int64   `json:"timestamp"` // creation time, unix milliseconds
}

// CreatedAt returns the creation time.
func (j Job) CreatedAt() time.Time {
	return time.UnixMilli(j.Timestamp)
}

// SetProgress records a progress reading. Values are clamped to [0,100] and
// never move backwards, so pollers observe a non-decreasing sequence.
func (j *Job) SetProgress(p float64) {
	switch {
	case p < 0:
		p = 0
	case p > 100:
		p = 100
	}
	if p > j.Progress {
		j.Progress = p
	}
	if !j.Status.IsTerminal() {
		j.Status = StatusDownloading
	}
}

// SetFilename records the artifact name reported by the downloader.
func (j *Job) SetFilename(name string) {
	if name == "" {
		return
	}
	j.Filename = &name
}

// Complete marks the job finished successfully.
func (j *Job) Complete() {
	j.Progress = 100
	j.Status = StatusCompleted
	j.Error = nil
}

// Fail marks the job failed with a human readable message.
func (j *Job) Fail(msg string) {
	j.Status = StatusError
	j.Error = &msg
}
