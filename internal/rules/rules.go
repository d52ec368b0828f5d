// Package rules loads evaluation rules from Markdown files with YAML
// front-matter. The front-matter carries the rule's identity and severity;
// the body is the free-form criteria text fed to the oracle.
package rules

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"docjudge/internal/engine"
	"docjudge/internal/logging"
)

type frontMatter struct {
	ID       string `yaml:"id"`
	Severity string `yaml:"severity"`
}

// Parse reads one rule document. name is used in error messages only.
//
// Expected layout:
//
//	---
//	id: heading-required
//	severity: warn
//	---
//	Every document must start with a level-1 heading.
func Parse(name string, data []byte) (engine.Rule, error) {
	meta, body, err := splitFrontMatter(string(data))
	if err != nil {
		return engine.Rule{}, fmt.Errorf("%s: %w", name, err)
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(meta), &fm); err != nil {
		return engine.Rule{}, fmt.Errorf("%s: invalid front-matter: %w", name, err)
	}
	if fm.ID == "" {
		return engine.Rule{}, fmt.Errorf("%s: front-matter is missing 'id'", name)
	}

	severity := engine.Severity(fm.Severity)
	switch severity {
	case "":
		severity = engine.SeverityError
	case engine.SeverityError, engine.SeverityWarn:
	default:
		return engine.Rule{}, fmt.Errorf("%s: invalid severity %q (want error or warn)", name, fm.Severity)
	}

	criteria := strings.TrimSpace(body)
	if criteria == "" {
		return engine.Rule{}, fmt.Errorf("%s: rule body (criteria) is empty", name)
	}

	return engine.Rule{ID: fm.ID, Severity: severity, Criteria: criteria}, nil
}

// LoadDir loads every .md rule under dir, rejecting duplicate ids. Rules
// come back sorted by id so runs are reproducible regardless of filesystem
// order.
func LoadDir(dir string) ([]engine.Rule, error) {
	var loaded []engine.Rule
	seen := make(map[string]string)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read rule %s: %w", path, err)
		}
		rule, err := Parse(path, data)
		if err != nil {
			return err
		}
		if prev, dup := seen[rule.ID]; dup {
			return fmt.Errorf("duplicate rule id %q in %s (already defined in %s)", rule.ID, path, prev)
		}
		seen[rule.ID] = path
		loaded = append(loaded, rule)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(loaded, func(i, j int) bool { return loaded[i].ID < loaded[j].ID })
	logging.Rules("loaded %d rules from %s", len(loaded), dir)
	return loaded, nil
}

// splitFrontMatter separates the leading --- delimited YAML block from the
// body. A missing block is an error; rules without identity are useless.
func splitFrontMatter(s string) (meta, body string, err error) {
	s = strings.TrimLeft(s, "\uFEFF") // tolerate a BOM
	lines := strings.SplitAfter(s, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", "", fmt.Errorf("missing front-matter (expected leading ---)")
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], ""), strings.Join(lines[i+1:], ""), nil
		}
	}
	return "", "", fmt.Errorf("unterminated front-matter (missing closing ---)")
}
