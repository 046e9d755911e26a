// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package downloader

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zipWith(t *testing.T, files map[string]string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, contents := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(contents))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDownloadAndUnzipIfMissing(t *testing.T) {
	ShowProgressBar = false
	contents := zipWith(t, map[string]string{
		"toykg/entities.dict": "0\ta\n1\tb\n",
		"toykg/train.txt":     "a\tr\tb\n",
	})
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write(contents)
	}))
	defer server.Close()

	baseDir := t.TempDir()
	zipFile := path.Join(baseDir, "toykg.zip")
	targetDir := path.Join(baseDir, "toykg")
	require.NoError(t, DownloadAndUnzipIfMissing(server.URL+"/toykg.zip", zipFile, baseDir, targetDir, ""))
	got, err := os.ReadFile(path.Join(targetDir, "train.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a\tr\tb\n", string(got))

	// Second time nothing is downloaded.
	require.NoError(t, DownloadAndUnzipIfMissing(server.URL+"/toykg.zip", zipFile, baseDir, targetDir, ""))
	assert.Equal(t, 1, requests)

	// Wrong checksum.
	assert.Error(t, DownloadIfMissing(server.URL+"/toykg.zip", zipFile, "0000"))
}

func TestDownloadNotFound(t *testing.T) {
	ShowProgressBar = false
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	filePath := path.Join(t.TempDir(), "missing.zip")
	_, err := Download(server.URL+"/missing.zip", filePath)
	require.Error(t, err)
	_, statErr := os.Stat(filePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUnzipRejectsEscapingEntries(t *testing.T) {
	baseDir := t.TempDir()
	zipFile := path.Join(baseDir, "bad.zip")
	require.NoError(t, os.WriteFile(zipFile, zipWith(t, map[string]string{"../escape.txt": "x"}), 0644))
	assert.ErrorContains(t, Unzip(zipFile, path.Join(baseDir, "out")), "invalid entry")
}
