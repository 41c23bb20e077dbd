package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const exampleConfig = `# sitegen configuration
title: "My Site"
description: "A blog built with sitegen"
base_url: "https://example.com"
default_layout: default

content_dir: content
template_dir: templates
static_dir: static
output_dir: public

pagination: 10

collections:
  - name: posts
    path: posts
    permalink: /:year/:month/:day/:slug/
`

const exampleDefaultLayout = `<!DOCTYPE html>
<html>
<head>
  <title>{{ .Page.Title }} - {{ .Site.Title }}</title>
</head>
<body>
  {{ partial "nav" . }}
  <main>{{ .Content }}</main>
</body>
</html>
`

const examplePostLayout = `---
layout: default
---
<article>
  <h1>{{ .Page.Title }}</h1>
  <time>{{ .Page.Date.Format "2006-01-02" }}</time>
  {{ .Content }}
</article>
`

const exampleNavPartial = `<nav><a href="{{ .Site.BaseURL }}/">{{ .Site.Title }}</a></nav>
`

const examplePost = `---
title: "Hello, World"
layout: post
tags:
  - meta
---
Welcome to your new site.
`

// Init scaffolds a starter site: configuration, layouts, a nav partial, and a
// first post.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	baseDir := filepath.Dir(configPath)
	files := map[string]string{
		configPath: exampleConfig,
		filepath.Join(baseDir, "templates", "default.html"):        exampleDefaultLayout,
		filepath.Join(baseDir, "templates", "post.html"):           examplePostLayout,
		filepath.Join(baseDir, "templates", "partials", "nav.html"): exampleNavPartial,
		filepath.Join(baseDir, "content", "posts",
			time.Now().Format("2006-01-02")+"-hello-world.md"): examplePost,
	}

	for path, content := range files {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}
