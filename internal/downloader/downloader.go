// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package downloader provides functions for downloading and extracting dataset files.
package downloader

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/fedgraph/pkg/support/fsutil"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// ShowProgressBar controls whether downloads display a progress bar in the terminal.
var ShowProgressBar = true

// CopyWithProgressBar is similar to io.Copy, but displays a progress bar with the amount of data copied.
//
// If contentLength is unknown (< 0) the progress bar shows a spinner.
func CopyWithProgressBar(dst io.Writer, src io.Reader, contentLength int64, description string) (n int64, err error) {
	if contentLength > 0 {
		description = description + " (" + humanize.IBytes(uint64(contentLength)) + ")"
	}
	bar := progressbar.NewOptions64(contentLength,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeUnicode),
		progressbar.OptionOnCompletion(func() { _, _ = os.Stderr.WriteString("\n") }),
		progressbar.OptionSetWriter(os.Stderr),
	)
	n, err = io.Copy(io.MultiWriter(dst, bar), src)
	_ = bar.Finish()
	return
}

// Download file from url and save it at the given path.
// It attempts to create the directory if it doesn't yet exist.
func Download(url, filePath string) (size int64, err error) {
	filePath, err = fsutil.ReplaceTildeInDir(filePath)
	if err != nil {
		return
	}
	err = os.MkdirAll(path.Dir(filePath), 0777)
	if err != nil && !os.IsExist(err) {
		err = errors.Wrapf(err, "failed to create the directory for the path: %q", path.Dir(filePath))
		return
	}
	resp, err := http.Get(url)
	if err != nil {
		return 0, errors.Wrapf(err, "failed downloading %q", url)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("failed downloading %q: status %q", url, resp.Status)
	}

	// Download to a uniquely named temporary file: an interrupted download is not mistaken by a
	// complete one, and concurrent downloads of the same file don't write over each other.
	tmpPath := fmt.Sprintf("%s.downloading-%s", filePath, uuid.NewString())
	file, err := os.Create(tmpPath)
	if err != nil {
		return 0, errors.Wrapf(err, "failed creating file %q", tmpPath)
	}
	if ShowProgressBar {
		size, err = CopyWithProgressBar(file, resp.Body, resp.ContentLength, path.Base(filePath))
	} else {
		size, err = io.Copy(file, resp.Body)
	}
	if err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return 0, errors.Wrapf(err, "downloading %q to %q", url, tmpPath)
	}
	if err = file.Close(); err != nil {
		return 0, errors.Wrapf(err, "failed closing %q", tmpPath)
	}
	if err = os.Rename(tmpPath, filePath); err != nil {
		return 0, errors.Wrapf(err, "failed to move %q to %q", tmpPath, filePath)
	}
	return size, nil
}

// DownloadIfMissing will check if the path exists already, and if not it will download the file
// from the given URL.
//
// If checkHash is provided, it checks that the file has the hash (SHA256) or fail.
func DownloadIfMissing(url, filePath, checkHash string) error {
	filePath, err := fsutil.ReplaceTildeInDir(filePath)
	if err != nil {
		return err
	}
	exists, err := fsutil.FileExists(filePath)
	if err != nil {
		return err
	}
	if !exists {
		klog.Infof("Downloading %s ...", url)
		size, err := Download(url, filePath)
		if err != nil {
			return err
		}
		klog.V(1).Infof("Downloaded %s to %q", humanize.IBytes(uint64(size)), filePath)
	}
	if checkHash == "" {
		return nil
	}
	return fsutil.ValidateChecksum(filePath, checkHash)
}

// DownloadAndUnzipIfMissing downloads `zipFile` from given url, if file not there yet.
// And then unzip it under directory `unzipBaseDir`, if the target `targetUnzipDir` directory is missing.
//
// If checkHash is provided, it checks that the file has the hash or fail.
func DownloadAndUnzipIfMissing(url, zipFile, unzipBaseDir, targetUnzipDir, checkHash string) error {
	exists, err := fsutil.FileExists(targetUnzipDir)
	if err != nil || exists {
		return err
	}
	if err = DownloadIfMissing(url, zipFile, checkHash); err != nil {
		return err
	}
	if err = Unzip(zipFile, unzipBaseDir); err != nil {
		return err
	}
	exists, err = fsutil.FileExists(targetUnzipDir)
	if err != nil {
		return err
	}
	if !exists {
		return errors.Errorf("downloaded from %q and unzip'ed %q, but didn't get directory %q", url, zipFile, targetUnzipDir)
	}
	return nil
}

// Unzip file into the directory zipBaseDir.
// Entries that would be extracted outside zipBaseDir are rejected.
func Unzip(zipFile, zipBaseDir string) error {
	r, err := zip.OpenReader(zipFile)
	if err != nil {
		return errors.Wrapf(err, "failed to open zip file %q", zipFile)
	}
	defer func() { _ = r.Close() }()
	baseDir := filepath.Clean(zipBaseDir)
	for _, entry := range r.File {
		target := filepath.Join(baseDir, entry.Name)
		if target != baseDir && !strings.HasPrefix(target, baseDir+string(os.PathSeparator)) {
			return errors.Errorf("zip file %q has invalid entry %q", zipFile, entry.Name)
		}
		if entry.FileInfo().IsDir() {
			if err = os.MkdirAll(target, 0777); err != nil {
				return errors.Wrapf(err, "failed to create directory %q", target)
			}
			continue
		}
		if err = extractEntry(entry, target); err != nil {
			return errors.WithMessagef(err, "while unzipping %q", zipFile)
		}
	}
	return nil
}

func extractEntry(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0777); err != nil {
		return errors.Wrapf(err, "failed to create directory for %q", target)
	}
	src, err := entry.Open()
	if err != nil {
		return errors.Wrapf(err, "failed to open entry %q", entry.Name)
	}
	defer func() { _ = src.Close() }()
	dst, err := os.Create(target)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", target)
	}
	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return errors.Wrapf(err, "failed to extract %q", entry.Name)
	}
	return errors.Wrapf(dst.Close(), "failed to close %q", target)
}
