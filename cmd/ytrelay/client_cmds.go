// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/ytrelay/internal/client"
	"github.com/ManuGH/ytrelay/internal/jobs"
)

type clientOptions struct {
	server      string
	cookiesFile string
}

func (o *clientOptions) bind(cmd *cobra.Command) {
	server := os.Getenv("YTRELAY_SERVER")
	if server == "" {
		server = "http://localhost:3001"
	}
	cmd.Flags().StringVar(&o.server, "server", server, "relay base URL")
	cmd.Flags().StringVar(&o.cookiesFile, "cookies-file", "", "Netscape cookie file passed to yt-dlp")
}

func (o *clientOptions) cookies(w io.Writer) (string, error) {
	if o.cookiesFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(o.cookiesFile)
	if err != nil {
		return "", fmt.Errorf("read cookies: %w", err)
	}
	text := string(data)
	if !client.ValidateCookies(text) {
		_, _ = fmt.Fprintln(w, "warning: cookies contain neither VISITOR_INFO1_LIVE nor LOGIN_INFO")
	}
	return text, nil
}

// normalizeURL turns a bare id or any recognised YouTube URL into the watch URL.
func normalizeURL(arg string) string {
	if id, ok := client.ExtractVideoID(arg); ok {
		return client.WatchURL(id)
	}
	if len(arg) == 11 && !strings.ContainsAny(arg, "/:.") {
		return client.WatchURL(arg)
	}
	return arg
}

func newInfoCmd() *cobra.Command {
	var opts clientOptions
	cmd := &cobra.Command{
		Use:   "info <url>",
		Short: "Show video metadata and available formats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cookies, err := opts.cookies(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			info, err := client.New(opts.server).VideoInfo(cmd.Context(), normalizeURL(args[0]), cookies)
			if err != nil {
				return errors.New(client.Message(err))
			}

			_, _ = fmt.Fprintf(out, "%s\n", info.Title)
			_, _ = fmt.Fprintf(out, "  channel:  %s\n", info.Channel)
			_, _ = fmt.Fprintf(out, "  duration: %s\n", info.Duration)
			_, _ = fmt.Fprintf(out, "  uploaded: %s\n", info.UploadDate)
			_, _ = fmt.Fprintf(out, "  views:    %s\n", info.ViewCount)
			_, _ = fmt.Fprintln(out, "  formats:")
			for _, f := range info.AvailableFormats {
				_, _ = fmt.Fprintf(out, "    %-6s %-4s %s\n", f.Quality, client.QualityBadge(f.Quality), f.Format)
			}
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}

func newFetchCmd() *cobra.Command {
	var (
		opts   clientOptions
		req    client.DownloadRequest
		outDir string
		noSave bool
	)
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Download a video through the relay and save it locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cookies, err := opts.cookies(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			req.URL = normalizeURL(args[0])
			req.Cookies = cookies

			p := &client.Poller{Client: client.New(opts.server), Interval: client.DefaultPollInterval}
			if !noSave {
				p.Dir = outDir
			}
			res, err := p.Run(cmd.Context(), req, func(j jobs.Job) {
				_, _ = fmt.Fprintf(out, "\r%-11s %5.1f%%", j.Status, j.Progress)
			})
			_, _ = fmt.Fprintln(out)
			if err != nil {
				return errors.New(client.Message(err))
			}
			if res.Path != "" {
				_, _ = fmt.Fprintf(out, "saved %s\n", res.Path)
			} else if res.Job.Filename != nil {
				_, _ = fmt.Fprintf(out, "completed %s\n", *res.Job.Filename)
			}
			return nil
		},
	}
	opts.bind(cmd)
	f := cmd.Flags()
	f.StringVar(&req.Format, "format", "mp4", "mp4 or mp3")
	f.StringVar(&req.Quality, "quality", "best", "height such as 720p, or best")
	f.StringVar(&req.VideoTitle, "title", "", "title used in the output filename")
	f.StringVar(&req.Channel, "channel", "", "channel used in the output filename")
	f.StringVar(&req.UploadDate, "upload-date", "", "upload date used in the output filename")
	f.StringVarP(&outDir, "output", "o", ".", "directory for the saved file")
	f.BoolVar(&noSave, "no-save", false, "leave the file on the server")
	return cmd
}
