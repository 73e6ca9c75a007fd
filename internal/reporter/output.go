package reporter

import (
	"io"
	"os"
	"path/filepath"

	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// OpenOutput returns the destination for a rendered report. "" and "-" mean
// stdout; anything else is created (with parent directories) or truncated.
func OpenOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, outputError(path, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, outputError(path, err)
	}
	return file, nil
}

// WriteOutput writes text to path (see OpenOutput)
func WriteOutput(path, text string) error {
	out, err := OpenOutput(path)
	if err != nil {
		return err
	}

	if _, err := io.WriteString(out, text); err != nil {
		_ = out.Close()
		return outputError(path, err)
	}
	if err := out.Close(); err != nil {
		return outputError(path, err)
	}

	if path != "" && path != "-" {
		logger.GetGlobalLogger().WithComponent("reporter").
			WithFields(logger.Fields{"path": path, "bytes": len(text)}).
			Info("Report written")
	}
	return nil
}

func outputError(path string, err error) error {
	switch {
	case os.IsPermission(err):
		return errors.FileError(errors.CodeFilePermission, path, err).
			WithSuggestion("choose an output path you can write to, or omit --output to print to stdout")
	case os.IsNotExist(err):
		return errors.FileError(errors.CodeFileNotFound, path, err)
	default:
		return errors.FileError("", path, err)
	}
}
