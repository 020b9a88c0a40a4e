package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

// OutputManager places export files under one directory per saved view.
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// CreateViewOutputDir creates the export directory of a view.
func (om *OutputManager) CreateViewOutputDir(viewID string) (string, error) {
	viewDir := filepath.Join(om.BaseOutputDir, filepath.Base(viewID))

	err := os.MkdirAll(viewDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create view output directory: %w", err)
	}

	return viewDir, nil
}

// GetOutputFilePath generates a full path for an export file, creating the
// view directory if needed.
func (om *OutputManager) GetOutputFilePath(viewID, fileName string) (string, error) {
	viewDir, err := om.CreateViewOutputDir(viewID)
	if err != nil {
		return "", err
	}

	// path separators would escape the view directory
	cleanFileName := filepath.Base(fileName)

	return filepath.Join(viewDir, cleanFileName), nil
}

// ResolveDownload returns the path of an existing export file.
func (om *OutputManager) ResolveDownload(viewID, fileName string) (string, error) {
	path := filepath.Join(om.BaseOutputDir, filepath.Base(viewID), filepath.Base(fileName))
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", fileName)
	}
	return path, nil
}

// GetDownloadURL generates a download URL for a file
func (om *OutputManager) GetDownloadURL(viewID, fileName string) string {
	cleanFileName := filepath.Base(fileName)
	return fmt.Sprintf("/api/v1/download/%s/%s", viewID, cleanFileName)
}

// ExportFileName builds a timestamped file name from a view name, e.g.
// "sales-by-region-20240501-120000.csv".
func ExportFileName(viewName, ext string, at time.Time) string {
	slug := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(viewName), "-"), "-")
	if slug == "" {
		slug = "pivot"
	}
	return fmt.Sprintf("%s-%s.%s", slug, at.UTC().Format("20060102-150405"), strings.TrimPrefix(ext, "."))
}

// GetFileType determines the file type based on extension
func (om *OutputManager) GetFileType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return "csv"
	case ".json":
		return "json"
	case ".txt":
		return "text"
	default:
		return "unknown"
	}
}

// GetFileSize returns the size of a file in bytes
func (om *OutputManager) GetFileSize(filePath string) (int64, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return fileInfo.Size(), nil
}

// EnsureOutputDirExists ensures the base output directory exists
func (om *OutputManager) EnsureOutputDirExists() error {
	return os.MkdirAll(om.BaseOutputDir, 0755)
}
