// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := Make[int32](10)
	assert.Len(t, s, 0)
	s.Insert(3, 7, 3)
	assert.Len(t, s, 2)
	assert.True(t, s.Has(7))
	assert.False(t, s.Has(5))

	visited := MakeWith[int32](5, 7)
	assert.True(t, visited.Has(5))
	assert.False(t, visited.Has(3))
}

func TestSorted(t *testing.T) {
	s := MakeWith[int32](7, 1, 3, 1)
	assert.Equal(t, []int32{1, 3, 7}, Sorted(s))
	assert.Empty(t, Sorted(Make[string]()))
}
