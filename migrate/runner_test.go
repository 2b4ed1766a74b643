package migrate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// 10 depends on 30 and 5 depends on 10, so application order is
// 30, 10, 5, 20 regardless of version numbers.
func forwardDepSet(t *testing.T) []*Migration {
	t.Helper()
	all := []*Migration{
		{Version: 5, Name: "five", Up: "SELECT 5", Down: "SELECT -5", Depends: []int64{10}},
		{Version: 10, Name: "ten", Up: "SELECT 10", Down: "SELECT -10", Depends: []int64{30}},
		{Version: 20, Name: "twenty", Up: "SELECT 20", Down: "SELECT -20"},
		{Version: 30, Name: "thirty", Up: "SELECT 30", Down: "SELECT -30"},
	}
	ordered, err := order(all)
	require.NoError(t, err)
	require.Equal(t, []int64{30, 10, 5, 20}, versionsOf(ordered))
	return ordered
}

func versionsOf(ms []*Migration) []int64 {
	out := make([]int64, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Version)
	}
	return out
}

func TestPendingUpToUnbounded(t *testing.T) {
	ordered := forwardDepSet(t)
	plan := pendingUpTo(ordered, map[int64]bool{}, -1)
	require.Equal(t, []int64{30, 10, 5, 20}, versionsOf(plan))
}

func TestPendingUpToHoldsBackDependents(t *testing.T) {
	ordered := forwardDepSet(t)

	// bound 20 excludes 30; 10 and transitively 5 are held back with it
	plan := pendingUpTo(ordered, map[int64]bool{}, 20)
	require.Equal(t, []int64{20}, versionsOf(plan))

	// nothing at all fits under bound 10
	require.Empty(t, pendingUpTo(ordered, map[int64]bool{}, 10))
}

func TestPendingUpToAppliedDependencySatisfies(t *testing.T) {
	ordered := forwardDepSet(t)
	plan := pendingUpTo(ordered, map[int64]bool{30: true}, 10)
	require.Equal(t, []int64{10, 5}, versionsOf(plan))
}

func TestRevertPlanReverseApplicationOrder(t *testing.T) {
	ordered := forwardDepSet(t)

	plan := revertPlan(ordered, map[int64]bool{5: true, 10: true, 30: true}, -1)
	require.Equal(t, []int64{5, 10, 30}, versionsOf(plan), "dependents come off first")
}

func TestRevertPlanKeepsVersionsAtOrBelow(t *testing.T) {
	ordered := forwardDepSet(t)

	plan := revertPlan(ordered, map[int64]bool{5: true, 10: true, 20: true, 30: true}, 10)
	require.Equal(t, []int64{20, 30}, versionsOf(plan))
}
