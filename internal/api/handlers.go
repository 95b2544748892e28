// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/ytrelay/internal/download"
	"github.com/ManuGH/ytrelay/internal/fsutil"
	"github.com/ManuGH/ytrelay/internal/jobs"
	"github.com/ManuGH/ytrelay/internal/log"
	"github.com/ManuGH/ytrelay/internal/ytdlp"
)

// isoMillis is the UTC ISO-8601 layout with milliseconds.
const isoMillis = "2006-01-02T15:04:05.000Z"

type testResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type videoInfoRequest struct {
	URL     json.RawMessage `json:"url"`
	Cookies json.RawMessage `json:"cookies"`
}

type downloadRequest struct {
	URL        json.RawMessage `json:"url"`
	Format     json.RawMessage `json:"format"`
	Quality    json.RawMessage `json:"quality"`
	Cookies    json.RawMessage `json:"cookies"`
	VideoTitle json.RawMessage `json:"videoTitle"`
	Channel    json.RawMessage `json:"channel"`
	UploadDate json.RawMessage `json:"uploadDate"`
}

type downloadStarted struct {
	DownloadID string `json:"downloadId"`
}

type cancelResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func optional(raw json.RawMessage) string {
	s, _ := stringField(raw)
	return s
}

// GET /api/test
func (s *Server) handleTest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, testResponse{
		Status:    "ok",
		Message:   "Backend server is running!",
		Timestamp: s.now().UTC().Format(isoMillis),
	})
}

// POST /api/video-info
func (s *Server) handleVideoInfo(w http.ResponseWriter, r *http.Request) {
	var req videoInfoRequest
	if err := decodeJSON(w, r, s.cfg.Server.BodyLimit, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	url, ok := stringField(req.URL)
	if !ok || url == "" || url[0] == '-' {
		writeError(w, http.StatusBadRequest, msgInvalidURL)
		return
	}

	info, err := s.deps.Info.VideoInfo(r.Context(), url, optional(req.Cookies))
	if err != nil {
		logger := log.WithContext(r.Context(), s.logger)
		logger.Warn().Err(err).Str(log.FieldEvent, "video_info.failed").Msg("video info lookup failed")
		writeError(w, http.StatusInternalServerError, msgParseVideoData+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// POST /api/download
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var body downloadRequest
	if err := decodeJSON(w, r, s.cfg.Server.BodyLimit, &body); err != nil {
		writeDecodeError(w, err)
		return
	}
	url, ok := stringField(body.URL)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidURL)
		return
	}

	job, err := s.deps.Runner.Submit(r.Context(), download.Request{
		URL:        url,
		Format:     optional(body.Format),
		Quality:    optional(body.Quality),
		Cookies:    optional(body.Cookies),
		Title:      optional(body.VideoTitle),
		Channel:    optional(body.Channel),
		UploadDate: optional(body.UploadDate),
	})
	if err != nil {
		s.writeSubmitError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, downloadStarted{DownloadID: job.ID})
}

func (s *Server) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, download.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, msgInvalidURL)
	case errors.Is(err, ytdlp.ErrInvalidFormat):
		writeError(w, http.StatusBadRequest, msgInvalidFormat)
	case errors.Is(err, download.ErrBusy):
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, msgBusy)
	case errors.Is(err, download.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, msgShuttingDown)
	default:
		logger := log.WithContext(r.Context(), s.logger)
		logger.Error().Err(err).Str(log.FieldEvent, "job.submit_failed").Msg("could not create download job")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// GET /api/download/{id}/progress
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r, msgNotFound)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// DELETE /api/download/{id}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.deps.Runner.Cancel(r.Context(), id)
	switch {
	case err == nil:
		logger := log.WithContext(log.ContextWithJobID(r.Context(), id), s.logger)
		logger.Info().Str(log.FieldEvent, "job.cancel_requested").Msg("download cancellation requested")
		writeJSON(w, http.StatusAccepted, cancelResponse{ID: id, Status: statusCancelling})
	case errors.Is(err, jobs.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, download.ErrNotRunning):
		writeError(w, http.StatusConflict, msgNotRunning)
	default:
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// GET /api/download/{id}/file
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r, msgFileNotFound)
	if !ok {
		return
	}
	if job.Filename == nil || !safeBaseName(*job.Filename) {
		writeError(w, http.StatusNotFound, msgFileNotFound)
		return
	}

	path, err := fsutil.ConfineRelPath(s.cfg.Downloads.Dir, *job.Filename)
	if err != nil {
		writeError(w, http.StatusNotFound, msgFileNotOnDisk)
		return
	}
	f, info, err := fsutil.OpenRegular(path)
	if err != nil {
		writeError(w, http.StatusNotFound, msgFileNotOnDisk)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Disposition", contentDisposition(info.Name()))
	logger := log.WithContext(log.ContextWithJobID(r.Context(), job.ID), s.logger)
	logger.Info().
		Str(log.FieldEvent, "file.served").
		Str(log.FieldFilename, info.Name()).
		Int64("size", info.Size()).
		Msg("serving download")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) lookupJob(w http.ResponseWriter, r *http.Request, notFoundMsg string) (jobs.Job, bool) {
	id := chi.URLParam(r, "id")
	job, err := s.deps.Jobs.Get(r.Context(), id)
	switch {
	case err == nil:
		return job, true
	case errors.Is(err, jobs.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	default:
		logger := log.WithContext(r.Context(), s.logger)
		logger.Error().Err(err).Str(log.FieldJobID, id).Msg("job lookup failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
	return jobs.Job{}, false
}
