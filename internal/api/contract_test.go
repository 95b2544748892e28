// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ytrelay/internal/ytdlp"
)

// TestContract_ResponsesMatchOpenAPI replays representative requests and
// validates both sides against the embedded document.
func TestContract_ResponsesMatchOpenAPI(t *testing.T) {
	ctx := context.Background()
	doc, err := LoadOpenAPI(ctx)
	require.NoError(t, err)
	router, err := legacy.NewRouter(doc)
	require.NoError(t, err)

	f := newFixture(t)
	f.info.info = ytdlp.VideoInfo{
		ID:               "abc",
		Title:            "Title",
		Duration:         "3:05",
		UploadDate:       "2024-01-02",
		ViewCount:        "1,234 views",
		AvailableFormats: ytdlp.AvailableFormats([]int{720, 1080}),
	}

	rec := f.do(t, http.MethodPost, "/api/download", `{"url":"https://youtu.be/abc","format":"mp3"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var started downloadStarted
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	id := started.DownloadID

	cases := []struct {
		method, target, body string
	}{
		{http.MethodGet, "/api/test", ""},
		{http.MethodPost, "/api/video-info", `{"url":"https://youtu.be/abc"}`},
		{http.MethodPost, "/api/video-info", `{"url":"-x"}`},
		{http.MethodPost, "/api/download", `{"url":"https://youtu.be/abc","format":"mp4","quality":"1080p"}`},
		{http.MethodPost, "/api/download", `{"url":"-x","format":"mp4"}`},
		{http.MethodGet, "/api/download/" + id + "/progress", ""},
		{http.MethodGet, "/api/download/unknown/progress", ""},
		{http.MethodGet, "/api/download/" + id + "/file", ""},
		{http.MethodDelete, "/api/download/" + id, ""},
		{http.MethodDelete, "/api/download/unknown", ""},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
			if tc.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			route, params, err := router.FindRoute(req)
			require.NoError(t, err)

			input := &openapi3filter.RequestValidationInput{
				Request:    req,
				PathParams: params,
				Route:      route,
			}
			require.NoError(t, openapi3filter.ValidateRequest(ctx, input))

			// Validation consumed the body.
			req.Body = io.NopCloser(strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, req)

			require.NoError(t, openapi3filter.ValidateResponse(ctx, &openapi3filter.ResponseValidationInput{
				RequestValidationInput: input,
				Status:                 rec.Code,
				Header:                 rec.Header(),
				Body:                   io.NopCloser(bytes.NewReader(rec.Body.Bytes())),
			}), "status %d body %s", rec.Code, rec.Body.String())
		})
	}
}
