// Package kb loads per-country visa facts from a file-backed knowledge base.
//
// The knowledge base layout is <root>/<country>/visa_info.json where country
// is a lowercase single word. Each file holds arbitrary JSON facts that get
// rendered into LLM context for answering enquiries.
package kb

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound indicates the knowledge base holds no entry for the country.
var ErrNotFound = errors.New("no visa information for country")

const visaInfoFile = "visa_info.json"

// KnowledgeBase serves visa facts from a directory tree on disk.
type KnowledgeBase struct {
	root string
}

// Opts holds configuration options for the knowledge base.
type Opts struct {
	Root string
}

// Option defines a configuration option for the knowledge base.
type Option func(*Opts)

// WithRoot sets the knowledge base root directory.
func WithRoot(root string) Option {
	return func(o *Opts) { o.Root = root }
}

// New creates a KnowledgeBase rooted at the configured directory.
func New(opts ...Option) (*KnowledgeBase, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Root == "" {
		return nil, fmt.Errorf("knowledge base root not set")
	}
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("knowledge base root %s: %w", cfg.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("knowledge base root %s is not a directory", cfg.Root)
	}
	return &KnowledgeBase{root: cfg.Root}, nil
}

// Lookup returns the visa facts for a country. The country name is lowercased
// before resolving the path. Returns ErrNotFound when no entry exists or the
// entry is unreadable.
func (k *KnowledgeBase) Lookup(country string) (map[string]any, error) {
	country = strings.ToLower(strings.TrimSpace(country))
	if country == "" {
		return nil, ErrNotFound
	}
	path := filepath.Join(k.root, country, visaInfoFile)
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("KnowledgeBase.Lookup: no entry", "country", country, "path", path)
		return nil, ErrNotFound
	}
	var facts map[string]any
	if err := json.Unmarshal(data, &facts); err != nil {
		slog.Warn("KnowledgeBase.Lookup: malformed entry", "country", country, "error", err)
		return nil, ErrNotFound
	}
	return facts, nil
}

// Countries lists the countries that have a knowledge base entry, sorted.
func (k *KnowledgeBase) Countries() ([]string, error) {
	entries, err := os.ReadDir(k.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base root: %w", err)
	}
	var countries []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(k.root, entry.Name(), visaInfoFile)); err == nil {
			countries = append(countries, entry.Name())
		}
	}
	sort.Strings(countries)
	return countries, nil
}

// FormatFacts renders facts as indented JSON for inclusion in an LLM prompt.
func FormatFacts(facts map[string]any) string {
	if len(facts) == 0 {
		return "No specific visa information available."
	}
	data, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return "No specific visa information available."
	}
	return "COMPLETE VISA KNOWLEDGE BASE:\n" + string(data)
}
