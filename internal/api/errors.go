// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Client-facing error messages.
const (
	msgInvalidURL     = "Invalid URL provided"
	msgInvalidFormat  = "Invalid format. Must be mp4 or mp3"
	msgNotFound       = "Download not found"
	msgFileNotFound   = "File not found"
	msgFileNotOnDisk  = "File not found on disk"
	msgParseVideoData = "Failed to parse video data: "
	msgBodyTooLarge   = "Request body too large"
	msgInvalidJSON    = "Invalid JSON body"
	msgBusy           = "Server busy, try again later"
	msgShuttingDown   = "Server is shutting down"
	msgNotRunning     = "Download is not running"
	msgInternal       = "Internal server error"
	statusCancelling  = "cancelling"
)

var errBodyTooLarge = errors.New("request body too large")

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": msg}.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// decodeJSON reads at most limit bytes into v. It reports errBodyTooLarge
// separately so callers can answer 413.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	defer func() { _ = body.Close() }()

	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge
		}
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge
		}
		return errors.New("trailing data after JSON body")
	}
	return nil
}

// writeDecodeError maps a decodeJSON failure to 413 or 400.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		return
	}
	writeError(w, http.StatusBadRequest, msgInvalidJSON)
}

// stringField extracts a JSON string. ok is false for missing, null and
// non-string values.
func stringField(raw json.RawMessage) (s string, ok bool) {
	if len(raw) == 0 {
		return "", false
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
