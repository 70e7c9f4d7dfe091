package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alcm-b/toggl-import/internal/config"
	"github.com/alcm-b/toggl-import/internal/datasource"
	"github.com/alcm-b/toggl-import/internal/metrics"
	"github.com/alcm-b/toggl-import/internal/output"
	"github.com/alcm-b/toggl-import/internal/parser"
	"github.com/alcm-b/toggl-import/internal/storage"
	"github.com/alcm-b/toggl-import/internal/transformer"
)

// Test seams. Tests replace these to inject fakes without touching files or
// databases.
var (
	newRepositoryFn = storage.New
	openParserFn    = parser.Open
)

// summary reports what one run did.
type summary struct {
	sources   int
	converted int
	archived  int64
	runID     string
}

// runConvert streams every source through the transformer into stdout.
//
// The first row of the concatenated stream is the header (or the first row of
// every source with input.header_per_file). The Toggl header is written once,
// as soon as an input header has been consumed. Conversion stops at the first
// bad row; rows converted before it are still flushed to stdout, but nothing
// is archived.
func runConvert(ctx context.Context, cfg config.Config, sources []datasource.Source, stdout io.Writer) (sum summary, err error) {
	rounding, err := transformer.ParseRounding(cfg.MinuteRounding)
	if err != nil {
		return sum, err
	}
	tr := transformer.New(transformer.Spec{
		StartTime:    cfg.StartTime,
		Email:        cfg.Email,
		Tags:         cfg.Tags,
		TaskOverride: cfg.TaskOverride,
		TaskClient:   cfg.TaskClient,
		Rounding:     rounding,
	})

	var arch *storage.Archive
	if cfg.Archive.Kind != "" {
		repo, err := openArchive(ctx, cfg.Archive)
		if err != nil {
			return sum, err
		}
		defer repo.Close()
		arch = storage.NewArchive(repo)
		sum.runID = arch.RunID().String()
	}

	out := output.NewCSVWriter(stdout, config.Rune(cfg.Output.Comma, ','))
	defer func() {
		if ferr := out.Flush(); ferr != nil && err == nil {
			err = ferr
		}
	}()

	opt := parser.Options{
		Comma:    config.Rune(cfg.Input.Comma, ','),
		Encoding: cfg.Input.Encoding,
		Sheet:    cfg.Input.Sheet,
	}
	c := &converter{
		tr:            tr,
		out:           out,
		arch:          arch,
		opt:           opt,
		headerPerFile: cfg.Input.HeaderPerFile,
	}

	start := time.Now()
	for _, src := range sources {
		if err = c.convertSource(ctx, src); err != nil {
			break
		}
		sum.sources++
	}
	if err == nil && !c.headerSeen {
		err = fmt.Errorf("read input: %w", parser.ErrNoHeader)
	}
	sum.converted = out.Rows()
	metrics.RecordStep(cfg.Job, "convert", err, time.Since(start))
	metrics.RecordRow(cfg.Job, "converted", int64(sum.converted))
	if err != nil {
		return sum, err
	}

	if arch != nil {
		// Output goes out before the archive write so a slow database never
		// holds back the CSV.
		if err = out.Flush(); err != nil {
			return sum, err
		}
		start = time.Now()
		sum.archived, err = arch.Commit(ctx)
		metrics.RecordStep(cfg.Job, "archive", err, time.Since(start))
		metrics.RecordRow(cfg.Job, "archived", sum.archived)
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// openArchive opens the configured backend and creates its table on request.
func openArchive(ctx context.Context, a config.Archive) (storage.Repository, error) {
	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:  a.Kind,
		DSN:   a.DSN,
		Table: a.Table,
	})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if a.AutoCreateTable {
		if err := storage.EnsureTable(ctx, a.Kind, repo, a.Table); err != nil {
			repo.Close()
			return nil, fmt.Errorf("create archive table: %w", err)
		}
	}
	return repo, nil
}

// converter carries the state that spans sources within one run.
type converter struct {
	tr            *transformer.Transformer
	out           *output.CSVWriter
	arch          *storage.Archive
	opt           parser.Options
	headerPerFile bool

	headerSeen bool
}

func (c *converter) convertSource(ctx context.Context, src datasource.Source) error {
	rc, err := src.Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	rr, err := openParserFn(src.Name(), rc, c.opt)
	if err != nil {
		return fmt.Errorf("read %s: %w", src.Name(), err)
	}
	defer rr.Close()

	skipHeader := !c.headerSeen || c.headerPerFile
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := rr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", src.Name(), err)
		}

		if skipHeader {
			skipHeader = false
			if !c.headerSeen {
				c.headerSeen = true
				if err := c.out.WriteHeader(c.tr.Header()); err != nil {
					return err
				}
			}
			continue
		}

		row, err := c.tr.Apply(rec)
		if err != nil {
			return &transformer.RowError{Source: src.Name(), Line: rr.Line(), Err: err}
		}
		if err := c.out.Write(row); err != nil {
			return err
		}
		if c.arch != nil {
			c.arch.Add(src.Name(), rr.Line(), row)
		}
	}
}
