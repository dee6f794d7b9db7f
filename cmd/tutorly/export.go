package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron"

	"tutorly/internal/catalog"
	"tutorly/internal/concurrency"
	"tutorly/internal/domain"
	"tutorly/internal/export"
	"tutorly/internal/httpx"
	"tutorly/internal/providers/tutorly"
	"tutorly/internal/routes"
	"tutorly/internal/sftpclient"
)

type exportOptions struct {
	out     string
	format  export.Format
	workers int
	upload  bool
	filter  domain.CourseListFilter
}

func cmdExport(ctx context.Context, e *env, args []string) error {
	fs := newFlags("export", e.out)
	out := fs.String("out", "", "output path (default progress_<timestamp>.<format>)")
	format := fs.String("format", "csv", "csv, xlsx or xml (ignored when -out has an extension)")
	workers := fs.Int("workers", 4, "parallel progress requests")
	upload := fs.Bool("sftp", false, "upload the report via SFTP")
	every := fs.Duration("every", 0, "repeat the export on this interval until interrupted")
	category := fs.String("category", "", "only this category")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if _, err := visit(e, routes.PathCourses); err != nil {
		return err
	}

	opts := exportOptions{
		out:     *out,
		format:  export.Format(*format),
		workers: *workers,
		upload:  *upload,
		filter:  domain.CourseListFilter{Category: *category},
	}

	if *every <= 0 {
		_, err := exportOnce(ctx, e, opts, time.Now())
		return err
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	_, err := s.Every(*every).Do(func() {
		if _, err := exportOnce(ctx, e, opts, time.Now()); err != nil {
			log.Printf("ERROR: export: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule export: %w", err)
	}
	log.Printf("exporting every %s, interrupt to stop", *every)
	s.StartAsync()
	<-ctx.Done()
	s.Stop()
	return nil
}

// exportOnce writes one report and returns its path.
func exportOnce(ctx context.Context, e *env, opts exportOptions, now time.Time) (string, error) {
	path := opts.out
	if path == "" {
		path = export.DefaultFileName(opts.format, now)
	} else if filepath.Ext(path) == "" {
		path += "." + string(opts.format)
	}

	src := e.client.WithRetry(httpx.Backoff(e.cfg.ExportMaxAttempts))
	rows, err := export.Collect(ctx, src, opts.filter, concurrency.ParallelOptions{MaxWorkers: opts.workers})
	switch {
	case tutorly.IsUnauthorized(err) || errors.Is(err, tutorly.ErrNoCredential):
		routes.Expire(e.app.Session, e.app.Nav)
		return "", errLoginRequired
	case rows == nil && err != nil:
		fmt.Fprintln(e.out, catalog.ListFailedMessage)
		return "", err
	case err != nil:
		log.Printf("WARN: %v (writing partial report)", err)
	}

	if err := export.WriteProgressFile(path, rows); err != nil {
		return "", err
	}
	fmt.Fprintf(e.out, "wrote %d courses to %s\n", len(rows), path)

	if opts.upload {
		upCfg := sftpclient.FromConfig(e.cfg)
		upCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		remoteName := filepath.Base(path)
		if err := sftpclient.UploadFile(upCtx, upCfg, path, remoteName); err != nil {
			return path, err
		}
		log.Printf("uploaded to sftp://%s%s/%s", upCfg.Addr(), upCfg.RemoteDir, remoteName)
	}
	return path, nil
}
