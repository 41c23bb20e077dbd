// Package config loads the site configuration consumed as part of the Site
// Context. A single YAML file supplies global bindings, collection
// definitions, and pagination size.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the site configuration.
type Config struct {
	Title         string         `yaml:"title"`
	Description   string         `yaml:"description,omitempty"`
	BaseURL       string         `yaml:"base_url,omitempty"`
	DefaultLayout string         `yaml:"default_layout,omitempty"`
	ContentDir    string         `yaml:"content_dir,omitempty"`
	TemplateDir   string         `yaml:"template_dir,omitempty"`
	StaticDir     string         `yaml:"static_dir,omitempty"`
	OutputDir     string         `yaml:"output_dir,omitempty"`
	StateFile     string         `yaml:"state_file,omitempty"`
	Pagination    int            `yaml:"pagination,omitempty"`
	Workers       int            `yaml:"workers,omitempty"`
	Params        map[string]any `yaml:"params,omitempty"`
	Collections   []Collection   `yaml:"collections,omitempty"`
}

// Collection defines a named content collection rooted at a subdirectory of
// the content root.
type Collection struct {
	Name      string `yaml:"name"`
	Path      string `yaml:"path"`                // subdirectory under content_dir
	Permalink string `yaml:"permalink,omitempty"` // pattern, e.g. /:year/:month/:day/:slug/
	SortBy    string `yaml:"sort_by,omitempty"`   // "date" (default) or "title"
	Ascending bool   `yaml:"ascending,omitempty"`
	Output    *bool  `yaml:"output,omitempty"` // render members; defaults to true
}

// Renders reports whether members of the collection produce output pages.
func (c Collection) Renders() bool {
	return c.Output == nil || *c.Output
}

// Load reads the configuration file and applies defaults. A .env file, if
// present, is loaded first and the YAML content is environment-expanded, so
// secrets and machine-local paths stay out of the committed config.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "Loaded environment variables from .env")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(configPath))
	return &cfg, nil
}

func (c *Config) applyDefaults(baseDir string) {
	if c.Title == "" {
		c.Title = "Site"
	}
	if c.DefaultLayout == "" {
		c.DefaultLayout = "default"
	}
	if c.ContentDir == "" {
		c.ContentDir = "content"
	}
	if c.TemplateDir == "" {
		c.TemplateDir = "templates"
	}
	if c.StaticDir == "" {
		c.StaticDir = "static"
	}
	if c.OutputDir == "" {
		c.OutputDir = "public"
	}
	if c.StateFile == "" {
		c.StateFile = ".sitegen-state.db"
	}
	if c.Pagination <= 0 {
		c.Pagination = 10
	}
	if c.Params == nil {
		c.Params = map[string]any{}
	}

	if len(c.Collections) == 0 {
		c.Collections = []Collection{{Name: "posts", Path: "posts"}}
	}
	for i := range c.Collections {
		col := &c.Collections[i]
		if col.Path == "" {
			col.Path = col.Name
		}
		if col.Permalink == "" {
			col.Permalink = "/:year/:month/:day/:slug/"
		}
		if col.SortBy == "" {
			col.SortBy = "date"
		}
	}

	// Resolve directories relative to the config file location.
	for _, dir := range []*string{&c.ContentDir, &c.TemplateDir, &c.StaticDir, &c.OutputDir, &c.StateFile} {
		if *dir != "" && !filepath.IsAbs(*dir) {
			*dir = filepath.Join(baseDir, *dir)
		}
	}
}

// CollectionForPath returns the collection whose subdirectory contains the
// given content-root-relative path, or nil for standalone pages.
func (c *Config) CollectionForPath(relPath string) *Collection {
	for i := range c.Collections {
		col := &c.Collections[i]
		if relPath == col.Path {
			continue
		}
		prefix := col.Path + string(filepath.Separator)
		if len(relPath) > len(prefix) && relPath[:len(prefix)] == prefix {
			return col
		}
	}
	return nil
}
