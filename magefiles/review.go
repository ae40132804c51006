//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Review namespaces targets that drive the CLI against ./review.yaml.
type Review mg.Namespace

func bin() string { return filepath.Join(binDir, binName) }

// Query prints the strict query built from review.yaml.
func (Review) Query() error {
	mg.Deps(Build)
	return sh.RunV(bin(), "query")
}

// Preview fetches and prints the first page of arXiv results.
func (Review) Preview() error {
	mg.Deps(Build)
	return sh.RunV(bin(), "gather", "--preview")
}

// Rules runs gather and screen only.
func (Review) Rules() error {
	mg.Deps(Build)
	return sh.RunV(bin(), "run", "--no-llm")
}

// All runs every stage and exports the final candidates and quality scores.
func (Review) All() error {
	mg.Deps(Build)
	if err := sh.RunV(bin(), "run"); err != nil {
		return err
	}
	if err := sh.RunV(bin(), "export", "--stage", "ai_include", "--format", "csv", "--out", "exports/ai_include.csv"); err != nil {
		return err
	}
	return sh.RunV(bin(), "export", "--quality", "--out", "exports/quality.csv")
}
