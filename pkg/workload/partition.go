// Package workload computes each worker's file-index plan from the total
// file set and a split policy.
package workload

import (
	"fmt"
	"math/rand"
)

// Policy is the rule governing how the shared index set is distributed
// across workers.
type Policy string

const (
	// PolicySeparate partitions the index set into contiguous,
	// non-overlapping slices covering every index exactly once.
	PolicySeparate Policy = "separate"
	// PolicyOverlap gives every worker its own random permutation of the
	// full index set.
	PolicyOverlap Policy = "overlap"
	// PolicySame gives every worker the identical full ordered index list.
	PolicySame Policy = "same"
)

// ParsePolicy validates a split-policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicySeparate, PolicyOverlap, PolicySame:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unrecognized workload-split %q (want separate, overlap or same)", s)
}

// Plan produces one ordered index list per worker for n files. With
// randomize set, the base index list is shuffled once before the policy
// is applied. Workers may receive empty slices when workers > n; no index
// is ever dropped or duplicated under PolicySeparate.
func Plan(n, workers int, policy Policy, randomize bool, rng *rand.Rand) ([][]int, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative file count %d", n)
	}
	if workers <= 0 {
		return nil, fmt.Errorf("need at least one worker, got %d", workers)
	}

	base := make([]int, n)
	for i := range base {
		base[i] = i
	}
	if randomize {
		rng.Shuffle(len(base), func(i, j int) {
			base[i], base[j] = base[j], base[i]
		})
	}

	plans := make([][]int, workers)
	switch policy {
	case PolicySeparate:
		size := n / workers
		for i := 0; i < workers; i++ {
			lo := size * i
			hi := size * (i + 1)
			if i == workers-1 {
				hi = n // remainder goes to the last slice
			}
			plans[i] = append([]int(nil), base[lo:hi]...)
		}
	case PolicyOverlap:
		for i := 0; i < workers; i++ {
			perm := append([]int(nil), base...)
			rng.Shuffle(len(perm), func(a, b int) {
				perm[a], perm[b] = perm[b], perm[a]
			})
			plans[i] = perm
		}
	case PolicySame:
		for i := 0; i < workers; i++ {
			plans[i] = append([]int(nil), base...)
		}
	default:
		return nil, fmt.Errorf("unrecognized workload-split %q", policy)
	}
	return plans, nil
}

// TotalWork returns the number of operations a full run performs: every
// index once for PolicySeparate, every index per worker otherwise.
func TotalWork(n, workers int, policy Policy) int {
	if policy == PolicySeparate {
		return n
	}
	return n * workers
}
