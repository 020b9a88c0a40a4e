package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportFileName(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "sales-by-region-20240501-120000.csv", ExportFileName("Sales by Region!", "csv", at))
	assert.Equal(t, "pivot-20240501-120000.json", ExportFileName("  ", ".json", at))
}

func TestOutputFilesStayInViewDir(t *testing.T) {
	om := NewOutputManager(t.TempDir())

	path, err := om.GetOutputFilePath("view-1", "../../escape.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(om.BaseOutputDir, "view-1", "escape.csv"), path)
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0644))

	got, err := om.ResolveDownload("view-1", "escape.csv")
	require.NoError(t, err)
	assert.Equal(t, path, got)

	size, err := om.GetFileSize(got)
	require.NoError(t, err)
	assert.Equal(t, int64(4), size)

	_, err = om.ResolveDownload("view-1", "missing.csv")
	assert.True(t, os.IsNotExist(err))
	_, err = om.ResolveDownload("view-1", ".")
	assert.Error(t, err)

	assert.Equal(t, "/api/v1/download/view-1/escape.csv", om.GetDownloadURL("view-1", "sub/escape.csv"))
}

func TestGetFileType(t *testing.T) {
	om := NewOutputManager("")
	assert.Equal(t, "csv", om.GetFileType("a.CSV"))
	assert.Equal(t, "json", om.GetFileType("a.json"))
	assert.Equal(t, "text", om.GetFileType("a.txt"))
	assert.Equal(t, "unknown", om.GetFileType("a"))
}
