// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sampler

import "math/rand/v2"

// newRand creates a random number generator for the given seed and stream.
// Different streams generate independent sequences for the same seed.
func newRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// randKOfN return k random values without replacement out of `0..n-1`, and stores them in `values`.
// Note: `k = len(values)`.
func randKOfN(rng *rand.Rand, values []int32, n int) {
	k := len(values)
	if k*k < n {
		randKOfNLinear(rng, values, n)
	} else {
		randKOfNReservoir(rng, values, n)
	}
}

// randKOfNLinear is the linear implementation of rankKOfN that works well when k is small.
func randKOfNLinear(rng *rand.Rand, values []int32, n int) {
	// Random sampling, checking for previous choices: this is O(k^2), but since usually we are working
	// with small values of K, it's faster than creating a hash.
	for ii := range values {
		// Take a unique number.
		var x int32
	takeANumber:
		for {
			x = int32(rng.IntN(n))
			for jj := range ii {
				if values[jj] == x {
					continue takeANumber
				}
			}
			break
		}
		values[ii] = x
	}
}

func randKOfNReservoir(rng *rand.Rand, values []int32, n int) {
	k := len(values)
	// Reservoir sampling: go over all n values and check whether it replaces a previous value.
	for ii := range k {
		values[ii] = int32(ii)
	}
	for ii := k; ii < n; ii++ {
		pos := rng.IntN(ii + 1)
		if pos < k {
			values[pos] = int32(ii)
		}
	}
}
