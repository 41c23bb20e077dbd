// Package output materializes rendered artifacts into the output tree,
// skipping writes whose content hash matches the previous build so unchanged
// rebuilds leave file modification times alone.
package output

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	builderr "git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/state"
)

// Writer flushes rendered artifacts and assets to the output directory.
type Writer struct {
	outDir string
	store  *state.Store
	logger *slog.Logger

	written []string
	skipped int
}

// NewWriter creates a writer rooted at outDir, using store as the persisted
// hash side-channel.
func NewWriter(outDir string, store *state.Store) *Writer {
	return &Writer{outDir: outDir, store: store, logger: slog.Default()}
}

// PermalinkToRel maps a permalink to its output-relative file path:
// /2024/03/01/hello/ -> 2024/03/01/hello/index.html.
func PermalinkToRel(permalink string) string {
	p := strings.Trim(permalink, "/")
	if p == "" {
		return "index.html"
	}
	if path.Ext(p) != "" {
		return filepath.FromSlash(p)
	}
	return filepath.Join(filepath.FromSlash(p), "index.html")
}

// HashBytes returns the hex sha256 of content.
func HashBytes(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// WriteArtifact writes content at the output-relative path unless the
// persisted hash already matches. Reports whether bytes hit the disk.
func (w *Writer) WriteArtifact(ctx context.Context, rel string, content []byte) (bool, error) {
	hash := HashBytes(content)

	prev, err := w.store.OutputHash(ctx, rel)
	if err != nil {
		return false, err
	}
	target := filepath.Join(w.outDir, rel)
	if prev == hash {
		if _, statErr := os.Stat(target); statErr == nil {
			w.skipped++
			w.logger.Debug("Output unchanged, skipping write", "path", rel)
			return false, nil
		}
		// Hash matches but the file is gone; fall through and rewrite.
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return false, builderr.WriteFailure(rel, err)
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return false, builderr.WriteFailure(rel, err)
	}
	if err := w.store.SetOutputHash(ctx, rel, hash); err != nil {
		return false, err
	}

	w.written = append(w.written, rel)
	w.logger.Debug("Artifact written", "path", rel, "bytes", len(content))
	return true, nil
}

// CopyAsset copies a static file through unmodified, with the same hash-skip
// behavior as rendered artifacts.
func (w *Writer) CopyAsset(ctx context.Context, sourcePath, rel string) (bool, error) {
	content, err := os.ReadFile(sourcePath)
	if err != nil {
		return false, builderr.WriteFailure(rel, err)
	}
	return w.WriteArtifact(ctx, rel, content)
}

// Written returns the output-relative paths written during this writer's
// lifetime.
func (w *Writer) Written() []string { return w.written }

// Skipped returns how many artifacts were skipped as unchanged.
func (w *Writer) Skipped() int { return w.skipped }
