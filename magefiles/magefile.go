//go:build mage

// Package main contains Mage build targets for slr-engine developer tooling.
package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "slr-engine"
	cmdPkg  = "./cmd/slr-engine"
)

// projectDirs lists the working directories the CLI expects.
var projectDirs = []string{
	".secrets",
	"exports",
}

// Init creates the working directories and a starter review session.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	if _, err := os.Stat("review.yaml"); os.IsNotExist(err) {
		if err := os.WriteFile("review.yaml", []byte(starterSession), 0o644); err != nil {
			return fmt.Errorf("writing review.yaml: %w", err)
		}
		fmt.Println("   review.yaml")
	}
	fmt.Println("Project initialized.")
	return nil
}

const starterSession = `version: 1
topic: ""
facets:
  Population: []
  Intervention: []
  Outcome: []
policy:
  research_questions: []
  include: []
  exclude: []
  years:
    from: 2015
    to: 2025
checklist:
  scheme: Y/P/N
  questions: []
`

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet over the module.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Check runs vet and the tests.
func Check() {
	mg.SerialDeps(Vet, Test)
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}

// Stats prints non-blank Go lines per package, split into production and
// test code, followed by the word count of the Markdown and YAML docs.
func Stats() error {
	st, err := collectStats(".")
	if err != nil {
		return err
	}
	pkgs := make([]string, 0, len(st.pkgs))
	for dir := range st.pkgs {
		pkgs = append(pkgs, dir)
	}
	sort.Strings(pkgs)

	var prod, test int
	fmt.Printf("%-28s %7s %7s\n", "package", "code", "tests")
	for _, dir := range pkgs {
		c := st.pkgs[dir]
		fmt.Printf("%-28s %7d %7d\n", dir, c.prod, c.test)
		prod += c.prod
		test += c.test
	}
	fmt.Printf("%-28s %7d %7d\n", "total", prod, test)
	fmt.Printf("doc words: %d\n", st.docWords)
	return nil
}

type lineCount struct{ prod, test int }

type projectStats struct {
	pkgs     map[string]*lineCount
	docWords int
}

func collectStats(root string) (projectStats, error) {
	st := projectStats{pkgs: map[string]*lineCount{}}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".go" && ext != ".md" && ext != ".yaml" && ext != ".yml" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if ext != ".go" {
			st.docWords += len(bytes.Fields(data))
			return nil
		}

		dir := filepath.Dir(path)
		c, ok := st.pkgs[dir]
		if !ok {
			c = &lineCount{}
			st.pkgs[dir] = c
		}
		n := 0
		for _, line := range bytes.Split(data, []byte("\n")) {
			if len(bytes.TrimSpace(line)) > 0 {
				n++
			}
		}
		if strings.HasSuffix(path, "_test.go") {
			c.test += n
		} else {
			c.prod += n
		}
		return nil
	})
	return st, err
}
