// Package manifest reads package.json files and extracts their declared
// dependencies.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sambabib/depcheck/pkg/logger"
)

// FileName is the manifest file looked up inside a project directory.
const FileName = "package.json"

var (
	ErrManifestNotFound = errors.New("manifest not found")
	ErrManifestInvalid  = errors.New("invalid manifest")
	ErrNotAMapping      = errors.New("manifest document is not a mapping")
)

// ParseResult is the outcome of reading a manifest. Failure is reported
// through Success and Err, never by panicking.
type ParseResult struct {
	Success  bool
	Path     string
	Document Document
	Err      error
}

// ErrorMessage returns the failure message, or "" on success.
func (r ParseResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// ResolvePath accepts either a project directory or a manifest file path and
// returns the manifest file path.
func ResolvePath(path string) string {
	if path == "" {
		path = "."
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, FileName)
	}
	return path
}

// Parse reads and decodes the manifest at path (a file or a project directory).
func Parse(path string) ParseResult {
	filePath := ResolvePath(path)
	logger.Debugf("[manifest] Reading %s", filePath)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrManifestNotFound, filePath)
		} else {
			err = fmt.Errorf("failed to read %s: %w", filePath, err)
		}
		return ParseResult{Path: filePath, Err: err}
	}

	doc, err := ParseBytes(data)
	if err != nil {
		return ParseResult{Path: filePath, Err: fmt.Errorf("%s: %w", filePath, err)}
	}

	return ParseResult{Success: true, Path: filePath, Document: doc}
}
