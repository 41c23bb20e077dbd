package state

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/graph"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOutputHash_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	hash, err := s.OutputHash(ctx, "index.html")
	require.NoError(t, err)
	require.Empty(t, hash)

	require.NoError(t, s.SetOutputHash(ctx, "index.html", "abc123"))

	hash, err = s.OutputHash(ctx, "index.html")
	require.NoError(t, err)
	require.Equal(t, "abc123", hash)

	// Upsert replaces.
	require.NoError(t, s.SetOutputHash(ctx, "index.html", "def456"))
	hash, err = s.OutputHash(ctx, "index.html")
	require.NoError(t, err)
	require.Equal(t, "def456", hash)
}

func TestGraph_PersistRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g := graph.New()
	require.NoError(t, g.RecordDependency("page:/a/", "content:a.md"))
	require.NoError(t, g.RecordDependency("page:/a/", "template:post"))

	require.NoError(t, s.SaveGraph(ctx, g.Snapshot()))

	edges, err := s.LoadGraph(ctx)
	require.NoError(t, err)
	require.Equal(t, g.Snapshot(), edges)

	// Saving again replaces rather than accumulates.
	require.NoError(t, s.SaveGraph(ctx, nil))
	edges, err = s.LoadGraph(ctx)
	require.NoError(t, err)
	require.Empty(t, edges)
}

func TestSignatures_PersistRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sigs := map[string]Signature{
		"content:posts/a.md": {Path: "/site/content/posts/a.md", Hash: "h1", Size: 10, MTime: 100},
		"template:default":   {Path: "/site/templates/default.html", Hash: "h2", Size: 20, MTime: 200},
	}
	require.NoError(t, s.SaveSignatures(ctx, sigs))

	got, err := s.LoadSignatures(ctx)
	require.NoError(t, err)
	require.Equal(t, sigs, got)
}

func TestBuildRecords(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	last, err := s.LastBuild(ctx)
	require.NoError(t, err)
	require.Nil(t, last)

	rec := BuildRecord{
		ID:        uuid.NewString(),
		Started:   time.Now().Truncate(time.Second),
		Duration:  1500 * time.Millisecond,
		Kind:      "full",
		Documents: 12,
		Rendered:  14,
		Written:   14,
		Status:    "ok",
	}
	require.NoError(t, s.RecordBuild(ctx, rec))

	last, err = s.LastBuild(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	require.Equal(t, rec.ID, last.ID)
	require.Equal(t, "full", last.Kind)
	require.Equal(t, 14, last.Rendered)
}

func TestForgetOutputs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetOutputHash(ctx, "a.html", "h1"))
	require.NoError(t, s.SetOutputHash(ctx, "b.html", "h2"))

	stale, err := s.ForgetOutputs(ctx, map[string]struct{}{"a.html": {}})
	require.NoError(t, err)
	require.Equal(t, []string{"b.html"}, stale)

	hash, err := s.OutputHash(ctx, "a.html")
	require.NoError(t, err)
	require.Equal(t, "h1", hash)

	hash, err = s.OutputHash(ctx, "b.html")
	require.NoError(t, err)
	require.Empty(t, hash)
}
