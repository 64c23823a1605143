package workload

import (
	"math/rand"
	"reflect"
	"sort"
	"testing"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func TestSeparateIsExactPartition(t *testing.T) {
	plans, err := Plan(10, 3, PolicySeparate, false, testRNG())
	if err != nil {
		t.Fatal(err)
	}
	if len(plans) != 3 {
		t.Fatalf("expected 3 plans, got %d", len(plans))
	}

	seen := map[int]int{}
	for _, plan := range plans {
		for _, idx := range plan {
			seen[idx]++
		}
	}
	if len(seen) != 10 {
		t.Errorf("union covers %d indices, want 10", len(seen))
	}
	for idx := 0; idx < 10; idx++ {
		if seen[idx] != 1 {
			t.Errorf("index %d appears %d times, want exactly once", idx, seen[idx])
		}
	}

	// Remainder (10 % 3 = 1) lands on the last slice, not the floor.
	if len(plans[2]) != 4 {
		t.Errorf("last slice has %d indices, want 4", len(plans[2]))
	}
}

func TestSeparateMoreWorkersThanFiles(t *testing.T) {
	plans, err := Plan(2, 5, PolicySeparate, false, testRNG())
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, plan := range plans {
		total += len(plan)
	}
	if total != 2 {
		t.Errorf("expected 2 indices total across empty-ish slices, got %d", total)
	}
}

func TestSameGivesIdenticalFullLists(t *testing.T) {
	plans, err := Plan(7, 4, PolicySame, false, testRNG())
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 1, 2, 3, 4, 5, 6}
	for i, plan := range plans {
		if !reflect.DeepEqual(plan, want) {
			t.Errorf("worker %d plan = %v, want %v", i, plan, want)
		}
	}
}

func TestOverlapGivesPerWorkerPermutations(t *testing.T) {
	plans, err := Plan(20, 3, PolicyOverlap, false, testRNG())
	if err != nil {
		t.Fatal(err)
	}
	for i, plan := range plans {
		if len(plan) != 20 {
			t.Fatalf("worker %d covers %d indices, want 20", i, len(plan))
		}
		sorted := append([]int(nil), plan...)
		sort.Ints(sorted)
		for j, idx := range sorted {
			if idx != j {
				t.Fatalf("worker %d plan is not a permutation of 0..19", i)
			}
		}
	}
}

func TestRandomizeShufflesBase(t *testing.T) {
	plans, err := Plan(100, 1, PolicySeparate, true, testRNG())
	if err != nil {
		t.Fatal(err)
	}
	inOrder := true
	for i, idx := range plans[0] {
		if idx != i {
			inOrder = false
			break
		}
	}
	if inOrder {
		t.Error("randomized plan came back in identity order")
	}
}

func TestPlanRejectsBadInputs(t *testing.T) {
	if _, err := Plan(5, 0, PolicySeparate, false, testRNG()); err == nil {
		t.Error("zero workers should fail")
	}
	if _, err := Plan(-1, 1, PolicySeparate, false, testRNG()); err == nil {
		t.Error("negative file count should fail")
	}
	if _, err := Plan(5, 1, Policy("bogus"), false, testRNG()); err == nil {
		t.Error("unknown policy should fail")
	}
}

func TestParsePolicy(t *testing.T) {
	for _, name := range []string{"separate", "overlap", "same"} {
		if _, err := ParsePolicy(name); err != nil {
			t.Errorf("ParsePolicy(%q) failed: %v", name, err)
		}
	}
	if _, err := ParsePolicy("sameish"); err == nil {
		t.Error("ParsePolicy should reject unknown names")
	}
}

func TestTotalWork(t *testing.T) {
	if got := TotalWork(10, 3, PolicySeparate); got != 10 {
		t.Errorf("separate total = %d, want 10", got)
	}
	if got := TotalWork(10, 3, PolicySame); got != 30 {
		t.Errorf("same total = %d, want 30", got)
	}
	if got := TotalWork(10, 3, PolicyOverlap); got != 30 {
		t.Errorf("overlap total = %d, want 30", got)
	}
}
