// Package catalog loads the incident-type catalog that classification and
// auto-fill run against. The catalog is a YAML file read once at startup;
// entries are immutable afterwards.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"fieldops.app/incidentbot/internal/model"
)

// Entry is one incident type. RequiredFields lists the canonical field
// names the operator must supply before a ticket of this type can be
// confirmed.
type Entry struct {
	Code            string         `koanf:"code" json:"code"`
	Category        model.Category `koanf:"category" json:"category"`
	Subcategory     string         `koanf:"subcategory" json:"subcategory"`
	Name            string         `koanf:"name" json:"name"`
	Description     string         `koanf:"description" json:"description"`
	Severity        model.Severity `koanf:"severity" json:"severity"`
	SuggestedAction string         `koanf:"suggested_action" json:"suggested_action"`
	RequiredFields  []string       `koanf:"required_fields" json:"required_fields"`
}

var categoryNames = map[model.Category]string{
	model.CategoryMechanical: "Mecánica",
	model.CategoryProcess:    "Proceso",
	model.CategoryQuality:    "Calidad",
	model.CategorySafety:     "Seguridad",
	model.CategoryLogistics:  "Logística",
	model.CategoryOperations: "Operaciones",
}

// Catalog is the loaded incident-type catalog, indexed by code.
type Catalog struct {
	entries []Entry
	byCode  map[string]Entry
	text    string
}

// Load reads and validates the catalog YAML at path.
func Load(path string) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading catalog file: %w", err)
	}

	var entries []Entry
	if err := k.Unmarshal("incidents", &entries); err != nil {
		return nil, fmt.Errorf("parsing catalog entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog %s contains no incidents", path)
	}

	return New(entries)
}

// New builds a catalog from already-parsed entries.
func New(entries []Entry) (*Catalog, error) {
	byCode := make(map[string]Entry, len(entries))
	for i, e := range entries {
		if e.Code == "" {
			return nil, fmt.Errorf("catalog entry %d has no code", i)
		}
		if _, dup := byCode[e.Code]; dup {
			return nil, fmt.Errorf("duplicate catalog code %s", e.Code)
		}
		if _, ok := categoryNames[e.Category]; !ok {
			return nil, fmt.Errorf("catalog entry %s has unknown category %q", e.Code, e.Category)
		}
		switch e.Severity {
		case model.SeverityLow, model.SeverityMedium, model.SeverityHigh, model.SeverityCritical:
		default:
			return nil, fmt.Errorf("catalog entry %s has unknown severity %q", e.Code, e.Severity)
		}
		byCode[e.Code] = e
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	c := &Catalog{entries: sorted, byCode: byCode}
	c.text = c.renderText()
	return c, nil
}

// Lookup returns the entry for code, or false when the code is unknown.
func (c *Catalog) Lookup(code string) (Entry, bool) {
	e, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return e, ok
}

// Entries returns all entries ordered by code.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// PromptText renders the catalog as markdown for classifier prompts.
// The rendering is deterministic so prompts are reproducible.
func (c *Catalog) PromptText() string {
	return c.text
}

func (c *Catalog) renderText() string {
	var b strings.Builder
	b.WriteString("# Catálogo de Incidentes\n")

	var current model.Category
	for _, e := range c.entries {
		if e.Category != current {
			current = e.Category
			fmt.Fprintf(&b, "\n## %s (%s)\n\n", categoryNames[current], current)
		}
		fmt.Fprintf(&b, "### %s – %s\n", e.Code, e.Name)
		if e.Subcategory != "" {
			fmt.Fprintf(&b, "- Subcategoría: %s\n", e.Subcategory)
		}
		fmt.Fprintf(&b, "- Severidad: %s\n", e.Severity)
		if e.Description != "" {
			fmt.Fprintf(&b, "- Descripción: %s\n", e.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}
