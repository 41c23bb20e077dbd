package graph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	builderr "git.home.luguber.info/inful/sitegen/internal/errors"
)

func TestInvalidate_TransitiveClosure(t *testing.T) {
	g := New()
	require.NoError(t, g.RecordDependency("page:/a/", "content:a.md"))
	require.NoError(t, g.RecordDependency("page:/a/", "template:post"))
	require.NoError(t, g.RecordDependency("page:/b/", "content:b.md"))
	require.NoError(t, g.RecordDependency("template:post", "template:partials/nav"))

	// Changing the nav partial invalidates the template and every page
	// rendered through it, but not /b/.
	got := g.Invalidate([]string{"template:partials/nav"})
	require.Contains(t, got, "page:/a/")
	require.Contains(t, got, "template:post")
	require.NotContains(t, got, "page:/b/")

	got = g.Invalidate([]string{"content:b.md"})
	require.Equal(t, map[string]struct{}{"page:/b/": {}}, got)
}

func TestInvalidate_NoChanges(t *testing.T) {
	g := New()
	require.NoError(t, g.RecordDependency("page:/a/", "content:a.md"))
	require.Empty(t, g.Invalidate(nil))
}

func TestRecordDependency_SelfEdgeFails(t *testing.T) {
	g := New()
	err := g.RecordDependency("template:nav", "template:nav")
	require.Error(t, err)
	require.True(t, builderr.IsKind(err, builderr.KindCyclicDependency))
}

func TestRecordDependency_CycleFails(t *testing.T) {
	g := New()
	require.NoError(t, g.RecordDependency("template:a", "template:b"))
	require.NoError(t, g.RecordDependency("template:b", "template:c"))

	err := g.RecordDependency("template:c", "template:a")
	require.Error(t, err)
	require.True(t, builderr.IsKind(err, builderr.KindCyclicDependency))
}

func TestClearArtifact(t *testing.T) {
	g := New()
	require.NoError(t, g.RecordDependency("page:/a/", "content:a.md"))
	require.NoError(t, g.RecordDependency("page:/a/", "template:post"))

	g.ClearArtifact("page:/a/")
	require.Empty(t, g.Invalidate([]string{"content:a.md"}))
	require.Empty(t, g.Dependencies("page:/a/"))
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	g := New()
	require.NoError(t, g.RecordDependency("page:/a/", "content:a.md"))
	require.NoError(t, g.RecordDependency("page:/a/", "template:post"))
	require.NoError(t, g.RecordDependency("page:/b/", "content:b.md"))

	edges := g.Snapshot()
	require.Len(t, edges, 3)

	restored, err := Restore(edges)
	require.NoError(t, err)
	require.Equal(t, edges, restored.Snapshot())
}

func TestRecordDependency_ConcurrentAppends(t *testing.T) {
	g := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			// Two artifacts concurrently discover a shared partial.
			artifact := "page:/a/"
			if n%2 == 0 {
				artifact = "page:/b/"
			}
			require.NoError(t, g.RecordDependency(artifact, "template:partials/nav"))
		}(i)
	}
	wg.Wait()

	got := g.Invalidate([]string{"template:partials/nav"})
	require.Len(t, got, 2)
}
