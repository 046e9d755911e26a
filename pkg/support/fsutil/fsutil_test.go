// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fsutil

import (
	"os"
	"os/user"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceTildeInDir(t *testing.T) {
	dir, err := ReplaceTildeInDir("/tmp/data")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/data", dir)

	usr, err := user.Current()
	require.NoError(t, err)
	dir, err = ReplaceTildeInDir("~/data")
	require.NoError(t, err)
	assert.Equal(t, path.Join(usr.HomeDir, "data"), dir)
}

func TestFileExistsAndChecksum(t *testing.T) {
	filePath := path.Join(t.TempDir(), "hello.txt")
	exists, err := FileExists(filePath)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, os.WriteFile(filePath, []byte("hello"), 0644))
	exists, err = FileExists(filePath)
	require.NoError(t, err)
	assert.True(t, exists)

	const helloHash = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	require.NoError(t, ValidateChecksum(filePath, helloHash))
	assert.Error(t, ValidateChecksum(filePath, "0000"))
}
