package content

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/config"
	builderr "git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
)

// contentExtensions are the file extensions recognized as renderable content.
// Everything else under the content root is ignored; static assets live under
// the static root.
var contentExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".html":     true,
}

var datedFilename = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)$`)

// Loader discovers and parses content files under the configured roots. The
// filesystem is read, never written.
type Loader struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewLoader creates a content loader.
func NewLoader(cfg *config.Config) *Loader {
	return &Loader{cfg: cfg, logger: slog.Default()}
}

// Load walks the content root and parses every recognized file into a
// Document. The result is ordered by relative path for reproducibility.
func (l *Loader) Load() ([]*Document, error) {
	var docs []*Document

	root := l.cfg.ContentDir
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, fmt.Errorf("content directory not found: %s", root)
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !contentExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		doc, err := l.loadFile(path, rel)
		if err != nil {
			return err
		}
		if doc.Draft {
			l.logger.Debug("Skipping draft", "path", rel)
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].RelPath < docs[j].RelPath })

	l.logger.Info("Content loaded", "documents", len(docs))
	return docs, nil
}

// LoadFile loads a single content file by absolute path. Used by incremental
// builds to re-read only changed sources.
func (l *Loader) LoadFile(path string) (*Document, error) {
	rel, err := filepath.Rel(l.cfg.ContentDir, path)
	if err != nil {
		return nil, err
	}
	return l.loadFile(path, rel)
}

func (l *Loader) loadFile(path, rel string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	col := l.cfg.CollectionForPath(rel)

	meta, body, had, err := frontmatter.Split(raw)
	if err != nil {
		return nil, builderr.MalformedFrontMatter(rel, err)
	}
	if !had && col != nil {
		// Collection members must declare metadata; only standalone pages may
		// be bare bodies.
		return nil, builderr.MalformedFrontMatter(rel, fmt.Errorf("collection %q member has no front matter block", col.Name))
	}

	fields, err := frontmatter.Parse(meta)
	if err != nil {
		return nil, builderr.MalformedFrontMatter(rel, err)
	}

	doc := &Document{
		SourcePath: path,
		RelPath:    rel,
		SourceHash: hashBytes(raw),
		Fields:     fields,
		RawBody:    body,
		Layout:     fields.String("layout"),
		Tags:       fields.Strings("tags"),
		Categories: fields.Strings("categories"),
		Draft:      fields.Bool("draft"),
	}
	if col != nil {
		doc.Collection = col.Name
	}
	if doc.Layout == "" {
		doc.Layout = l.cfg.DefaultLayout
	}

	if err := l.deriveFields(doc); err != nil {
		return nil, err
	}

	if col != nil {
		doc.Permalink, err = ExpandPermalink(col.Permalink, doc)
		if err != nil {
			return nil, err
		}
	} else {
		doc.Permalink = PagePermalink(rel)
	}
	if custom := fields.String("permalink"); custom != "" {
		doc.Permalink = normalizePermalink(custom)
	}

	return doc, nil
}

// deriveFields fills date, title, and slug from front-matter or, failing
// that, the YYYY-MM-DD-title filename convention.
func (l *Loader) deriveFields(doc *Document) error {
	base := filepath.Base(doc.RelPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	nameSlug := stem
	if m := datedFilename.FindStringSubmatch(stem); m != nil {
		nameSlug = m[2]
		if !doc.Fields.Has("date") {
			t, err := time.Parse("2006-01-02", m[1])
			if err != nil {
				return builderr.InvalidDateInFilename(doc.RelPath, m[1])
			}
			doc.Date = t
		}
	}

	if t, ok := doc.Fields.Time("date"); ok {
		doc.Date = t
	} else if doc.Fields.Has("date") {
		return builderr.MalformedFrontMatter(doc.RelPath, fmt.Errorf("unparsable date field %v", doc.Fields["date"]))
	}

	doc.Title = doc.Fields.String("title")
	if doc.Title == "" {
		doc.Title = strings.ReplaceAll(nameSlug, "-", " ")
	}

	doc.Slug = doc.Fields.String("slug")
	if doc.Slug == "" {
		doc.Slug = Slugify(nameSlug)
	}
	return nil
}

// LoadAssets walks the static root and returns copy-through assets. A missing
// static root is not an error; sites without assets are fine.
func (l *Loader) LoadAssets() ([]Asset, error) {
	root := l.cfg.StaticDir
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var assets []Asset
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		assets = append(assets, Asset{SourcePath: path, RelPath: rel})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(assets, func(i, j int) bool { return assets[i].RelPath < assets[j].RelPath })
	return assets, nil
}

func hashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func normalizePermalink(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}
