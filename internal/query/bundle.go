// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/slr-engine/pkg/types"
)

// Bundle is the on-disk record of a built query: the inputs, the generic
// Boolean expression, and its backend rendering. The researcher can save a
// bundle and rerun the search later without rebuilding the query.
type Bundle struct {
	Topic     string              `json:"topic" yaml:"topic"`
	Facets    types.FacetTerms    `json:"facets" yaml:"facets"`
	Kind      Kind                `json:"kind" yaml:"kind"`
	Boolean   string              `json:"boolean" yaml:"boolean"`
	Parts     map[string][]string `json:"parts" yaml:"parts"`
	Backend   string              `json:"backend" yaml:"backend"`
	Fields    []Field             `json:"fields" yaml:"fields"`
	Query     string              `json:"backend_query" yaml:"backend_query"`
	URL       string              `json:"api_url,omitempty" yaml:"api_url,omitempty"`
	Timestamp time.Time           `json:"timestamp" yaml:"timestamp"`
}

// NewBundle expands q for b and records everything needed to reproduce it.
func NewBundle(topic string, facets types.FacetTerms, q BooleanQuery, fields []Field, b Backend) (Bundle, error) {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	expanded, err := Expand(q, fields, b)
	if err != nil {
		return Bundle{}, err
	}
	parts := make(map[string][]string)
	for f, terms := range q.Parts() {
		name := string(f)
		if name == "" {
			name = "Any"
		}
		parts[name] = terms
	}
	return Bundle{
		Topic:     topic,
		Facets:    facets,
		Kind:      q.Kind,
		Boolean:   q.Query,
		Parts:     parts,
		Backend:   b.Name(),
		Fields:    fields,
		Query:     expanded,
		Timestamp: time.Now().UTC(),
	}, nil
}

// WriteBundle saves a bundle as JSON when path ends in .json and YAML
// otherwise.
func WriteBundle(path string, b Bundle) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(b, "", "  ")
	} else {
		data, err = yaml.Marshal(&b)
	}
	if err != nil {
		return fmt.Errorf("marshaling query bundle: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadBundle loads a previously saved bundle from disk.
func ReadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query bundle: %w", err)
	}
	var b Bundle
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &b)
	} else {
		err = yaml.Unmarshal(data, &b)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing query bundle: %w", err)
	}
	return &b, nil
}
