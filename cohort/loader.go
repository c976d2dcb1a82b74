package cohort

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/rdstat/internal/errors"
	"github.com/RyanBlaney/rdstat/logging"
	"github.com/RyanBlaney/rdstat/record"
)

// LoadOptions controls how a cohort is read from disk.
type LoadOptions struct {
	Parser            record.ParserConfig
	MaxDisplaySeconds float64
	Workers           int // parse concurrency, 0 means GOMAXPROCS
}

// DefaultLoadOptions returns default loader settings
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Parser:            record.DefaultParserConfig(),
		MaxDisplaySeconds: DefaultMaxDisplaySeconds,
	}
}

// LoadFiles parses every path and aligns the results into a Group. Files that
// do not exist are skipped with a warning; any other read failure aborts the
// load and names the file. Subjects are labelled by file name.
func LoadFiles(ctx context.Context, label string, paths []string, opts LoadOptions) (*Group, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "cohort_loader",
		"cohort":    label,
	})

	recs := make([]*record.Recording, len(paths))
	missing := make([]bool, len(paths))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, path := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			rec, err := record.ParseFile(path, opts.Parser)
			if err != nil {
				if os.IsNotExist(err) {
					missing[i] = true
					return nil
				}
				appErr := errors.Structural(label, path, "", "failed to read recording")
				appErr.Cause = err
				return appErr
			}
			recs[i] = rec
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var loaded []*record.Recording
	var subjects []string
	for i, rec := range recs {
		if missing[i] {
			logger.Warn("recording not found, skipping", logging.Fields{"file": paths[i]})
			continue
		}
		loaded = append(loaded, rec)
		subjects = append(subjects, filepath.Base(paths[i]))
	}

	if len(loaded) == 0 {
		return nil, errors.Structural(label, "", "", "no recordings found in cohort")
	}

	logger.Info("loaded cohort", logging.Fields{
		"files":   len(loaded),
		"missing": len(paths) - len(loaded),
	})

	return Align(label, loaded, subjects, opts.MaxDisplaySeconds)
}

// LoadDir loads every record file directly inside dir, in name order.
func LoadDir(ctx context.Context, label, dir string, opts LoadOptions) (*Group, error) {
	paths, err := ListRecordFiles(dir)
	if err != nil {
		appErr := errors.Structural(label, dir, "", "failed to list cohort directory")
		appErr.Cause = err
		return nil, appErr
	}
	if len(paths) == 0 {
		return nil, errors.Structural(label, dir, "", "no recordings found in cohort")
	}
	return LoadFiles(ctx, label, paths, opts)
}

// ListRecordFiles returns the record files in dir, sorted by name.
func ListRecordFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !record.IsRecordFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
