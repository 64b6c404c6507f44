// Package fileprocessor handles output file setup and runs a query command
package fileprocessor

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/uaetrace/internal/options"
	"github.com/retroenv/uaetrace/internal/pipeline"
	"github.com/spf13/afero"
)

// Run executes the query command of the options and writes the result to
// the output file, or stdout if no output file is set.
func Run(ctx context.Context, logger *log.Logger, fs afero.Fs, opts options.Program) error {
	writer, closer, err := CreateWriter(fs, opts)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	defer func() { _ = closer.Close() }()

	p := pipeline.New(logger, fs)
	if err := p.Execute(ctx, opts, writer); err != nil {
		return fmt.Errorf("running %s: %w", opts.Name, err)
	}
	return nil
}

// CreateWriter returns the writer for the command output and a closer that
// has to be called once all output is written.
func CreateWriter(fs afero.Fs, opts options.Program) (io.Writer, io.Closer, error) {
	if opts.Output == "" {
		return os.Stdout, nopCloser{}, nil
	}

	file, err := fs.Create(opts.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file %s: %w", opts.Output, err)
	}
	return file, file, nil
}

// PrintBanner prints application version information
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}

	versionString := version
	if commit != "" {
		if len(commit) > 7 {
			commit = commit[:7]
		}
		versionString += fmt.Sprintf(" (%s)", commit)
	}

	logger.Info("uaetrace", log.String("version", versionString))

	if date != "" && !strings.Contains(date, "unknown") {
		logger.Info("Build", log.String("date", date))
	}
}

// nopCloser is returned as closer for writers that must not be closed
type nopCloser struct{}

func (nopCloser) Close() error {
	return nil
}
