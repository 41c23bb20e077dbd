package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildError_ErrorIncludesPathAndCause(t *testing.T) {
	cause := fmt.Errorf("yaml: line 3: mapping values are not allowed")
	err := MalformedFrontMatter("_posts/2024-01-01-hello.md", cause)

	require.Contains(t, err.Error(), "_posts/2024-01-01-hello.md")
	require.Contains(t, err.Error(), "mapping values")
	require.Equal(t, cause, err.Unwrap())
}

func TestIsKind_MatchesThroughWrapping(t *testing.T) {
	inner := DuplicatePermalink("/2025/09/25/post/", "a.md", "b.md")
	wrapped := fmt.Errorf("building site: %w", inner)

	require.True(t, IsKind(wrapped, KindDuplicatePermalink))
	require.False(t, IsKind(wrapped, KindWriteFailure))
	require.Equal(t, KindDuplicatePermalink, GetKind(wrapped))
}

func TestDuplicatePermalink_ReportsBothSources(t *testing.T) {
	err := DuplicatePermalink("/2025/09/25/post/", "_posts/a.md", "_posts/b.md")

	require.Equal(t, "_posts/a.md", err.Context["first_path"])
	require.Equal(t, "_posts/b.md", err.Context["second_path"])
}

func TestIsFatal(t *testing.T) {
	require.False(t, IsFatal(nil))
	require.True(t, IsFatal(WriteFailure("out/index.html", fmt.Errorf("disk full"))))
	require.False(t, IsFatal(UnresolvedVariable("post.html", "subtitle")))
	// Unclassified errors are fatal.
	require.True(t, IsFatal(fmt.Errorf("boom")))
}
