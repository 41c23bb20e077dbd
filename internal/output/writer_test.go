package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	builderr "git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/state"
)

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	s, err := state.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	dir := t.TempDir()
	return NewWriter(dir, s), dir
}

func TestPermalinkToRel(t *testing.T) {
	require.Equal(t, "index.html", PermalinkToRel("/"))
	require.Equal(t, filepath.Join("about", "index.html"), PermalinkToRel("/about/"))
	require.Equal(t, filepath.Join("2024", "03", "01", "hello", "index.html"),
		PermalinkToRel("/2024/03/01/hello/"))
	require.Equal(t, filepath.Join("css", "main.css"), PermalinkToRel("/css/main.css"))
}

func TestWriteArtifact_WritesAndSkipsUnchanged(t *testing.T) {
	w, dir := newTestWriter(t)
	ctx := context.Background()

	wrote, err := w.WriteArtifact(ctx, filepath.Join("a", "index.html"), []byte("<html>a</html>"))
	require.NoError(t, err)
	require.True(t, wrote)
	require.FileExists(t, filepath.Join(dir, "a", "index.html"))

	// Identical content is a no-op on the filesystem.
	wrote, err = w.WriteArtifact(ctx, filepath.Join("a", "index.html"), []byte("<html>a</html>"))
	require.NoError(t, err)
	require.False(t, wrote)
	require.Equal(t, 1, w.Skipped())

	// Changed content is written again.
	wrote, err = w.WriteArtifact(ctx, filepath.Join("a", "index.html"), []byte("<html>b</html>"))
	require.NoError(t, err)
	require.True(t, wrote)
}

func TestWriteArtifact_RewritesWhenFileMissing(t *testing.T) {
	w, dir := newTestWriter(t)
	ctx := context.Background()

	_, err := w.WriteArtifact(ctx, "index.html", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "index.html")))

	// Hash matches the store but the file was deleted externally.
	wrote, err := w.WriteArtifact(ctx, "index.html", []byte("x"))
	require.NoError(t, err)
	require.True(t, wrote)
	require.FileExists(t, filepath.Join(dir, "index.html"))
}

func TestCopyAsset(t *testing.T) {
	w, dir := newTestWriter(t)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "main.css")
	require.NoError(t, os.WriteFile(src, []byte("body{}"), 0o644))

	wrote, err := w.CopyAsset(ctx, src, filepath.Join("css", "main.css"))
	require.NoError(t, err)
	require.True(t, wrote)

	got, err := os.ReadFile(filepath.Join(dir, "css", "main.css"))
	require.NoError(t, err)
	require.Equal(t, []byte("body{}"), got)

	wrote, err = w.CopyAsset(ctx, src, filepath.Join("css", "main.css"))
	require.NoError(t, err)
	require.False(t, wrote)
}

func TestCopyAsset_MissingSourceIsWriteFailure(t *testing.T) {
	w, _ := newTestWriter(t)

	_, err := w.CopyAsset(context.Background(), filepath.Join(t.TempDir(), "nope.css"), "nope.css")
	require.Error(t, err)
	require.True(t, builderr.IsKind(err, builderr.KindWriteFailure))
}
