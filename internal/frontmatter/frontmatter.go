// Package frontmatter splits and parses the YAML metadata block at the top
// of a content file.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the file started with a front-matter
// delimiter but never closed it.
var ErrMissingClosingDelimiter = errors.New("front matter opening delimiter found but closing delimiter is missing")

// Split separates a `---` delimited YAML front-matter block from the body.
//
// If the file does not start with a delimiter, had is false and body is the
// full input. CRLF files are handled; the returned slices alias the input.
func Split(content []byte) (meta []byte, body []byte, had bool, err error) {
	nl := detectNewline(content)

	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	metaStart := len(open)
	if bytes.HasPrefix(content[metaStart:], open) {
		// Empty block: "---\n---\n".
		return []byte{}, content[metaStart+len(open):], true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[metaStart:], closeSeq)
	if idx < 0 {
		// A file ending exactly at the closing delimiter has no trailing body.
		closeEnd := []byte(nl + "---")
		if bytes.HasSuffix(content[metaStart:], closeEnd) {
			end := len(content) - len(closeEnd)
			return content[metaStart : end+len(nl)], nil, true, nil
		}
		return nil, nil, false, ErrMissingClosingDelimiter
	}

	metaEnd := metaStart + idx + len(nl)
	bodyStart := metaStart + idx + len(closeSeq)
	return content[metaStart:metaEnd], content[bodyStart:], true, nil
}

// Parse parses a raw front-matter block (without delimiters) into Fields.
func Parse(meta []byte) (Fields, error) {
	if len(meta) == 0 {
		return Fields{}, nil
	}
	var fields Fields
	if err := yaml.Unmarshal(meta, &fields); err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}
	if fields == nil {
		fields = Fields{}
	}
	return fields, nil
}

// Fields is the author-supplied front-matter mapping. Values are whatever the
// YAML parser produced (string/int/float/bool/time/sequence/mapping); the
// typed accessors below cover the shapes the generator interprets, everything
// else passes through to templates untouched.
type Fields map[string]any

// String returns the field as a string, or "" if absent or not a string.
func (f Fields) String(key string) string {
	if v, ok := f[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns the field as a bool, or false if absent or not a bool.
func (f Fields) Bool(key string) bool {
	if v, ok := f[key].(bool); ok {
		return v
	}
	return false
}

// Strings returns the field as a string slice. A bare scalar string is
// treated as a one-element list, matching how authors write single tags.
func (f Fields) Strings(key string) []string {
	switch v := f[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Time returns the field as a time.Time. YAML dates arrive as time.Time;
// plain strings are parsed with the common date layouts.
func (f Fields) Time(key string) (time.Time, bool) {
	switch v := f[key].(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Has reports whether the field is present at all.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

func detectNewline(content []byte) string {
	for i := 0; i+1 < len(content); i++ {
		if content[i] == '\r' && content[i+1] == '\n' {
			return "\r\n"
		}
		if content[i] == '\n' {
			return "\n"
		}
	}
	return "\n"
}
