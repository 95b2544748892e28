// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import (
	"context"
	"time"

	"github.com/ManuGH/ytrelay/internal/jobs"
)

// DefaultPollInterval is the wait between progress requests.
const DefaultPollInterval = time.Second

// Result describes a finished fetch.
type Result struct {
	ID   string
	Job  jobs.Job
	Path string
}

// Poller submits a job, follows it to a terminal state and saves the file.
type Poller struct {
	Client   *Client
	Interval time.Duration
	// Dir receives the artifact. Empty skips the file download.
	Dir string
}

// Run drives one job. There is no attempt cap: ctx bounds the loop, and
// when ctx ends early the job is cancelled on the server. onProgress may be
// nil and sees every polled record.
func (p *Poller) Run(ctx context.Context, req DownloadRequest, onProgress func(jobs.Job)) (Result, error) {
	id, err := p.Client.StartDownload(ctx, req)
	if err != nil {
		return Result{}, err
	}
	res := Result{ID: id}

	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.abandon(ctx, id)
			return res, ctx.Err()
		case <-timer.C:
		}

		job, err := p.Client.Progress(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				p.abandon(ctx, id)
				return res, ctx.Err()
			}
			return res, err
		}
		res.Job = job
		if onProgress != nil {
			onProgress(job)
		}

		switch job.Status {
		case jobs.StatusCompleted:
			if p.Dir == "" {
				return res, nil
			}
			name := ""
			if job.Filename != nil {
				name = *job.Filename
			}
			res.Path, err = p.Client.DownloadFile(ctx, id, p.Dir, name)
			return res, err
		case jobs.StatusError:
			msg := "Download failed"
			if job.Error != nil && *job.Error != "" {
				msg = *job.Error
			}
			return res, &JobError{ID: id, Message: msg}
		}
		timer.Reset(interval)
	}
}

// abandon cancels the server job after ctx ended.
func (p *Poller) abandon(ctx context.Context, id string) {
	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_ = p.Client.Cancel(cancelCtx, id)
}
