package content

import (
	"fmt"
	"path"
	"strings"
)

// ExpandPermalink expands a permalink pattern (e.g. /:year/:month/:day/:slug/)
// for a document. Unknown placeholders are an error so a typo in the config
// surfaces at build time instead of producing broken URLs.
func ExpandPermalink(pattern string, doc *Document) (string, error) {
	segments := strings.Split(strings.Trim(pattern, "/"), "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		if !strings.HasPrefix(seg, ":") {
			out = append(out, seg)
			continue
		}
		switch seg {
		case ":year":
			out = append(out, fmt.Sprintf("%04d", doc.Date.Year()))
		case ":month":
			out = append(out, fmt.Sprintf("%02d", int(doc.Date.Month())))
		case ":day":
			out = append(out, fmt.Sprintf("%02d", doc.Date.Day()))
		case ":slug":
			out = append(out, doc.Slug)
		case ":collection":
			out = append(out, doc.Collection)
		default:
			return "", fmt.Errorf("unknown permalink placeholder %q in pattern %q", seg, pattern)
		}
	}
	return "/" + path.Join(out...) + "/", nil
}

// PagePermalink derives the permalink of a standalone page from its
// content-root-relative path: about.md -> /about/, docs/setup.md ->
// /docs/setup/. An index file maps to its directory.
func PagePermalink(relPath string) string {
	p := strings.TrimSuffix(relPath, path.Ext(relPath))
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	if path.Base(p) == "index" {
		p = path.Dir(p)
	}
	if p == "/" || p == "." {
		return "/"
	}
	return p + "/"
}
