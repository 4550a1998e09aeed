package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// QuestionRecord is one drillable question, flattened from the catalog.
// Records are built once at load time and never mutated.
type QuestionRecord struct {
	ID          string
	Category    string
	Subcategory string
	Label       string
}

// MakeID forms the composite question id. The id is the join key against the
// completion set, so its shape must stay stable across releases.
func MakeID(category, subcategory, label string) string {
	return category + "_" + subcategory + "_" + label
}

// Catalog is the parsed catalog document: category → subcategory → labels,
// with document order preserved.
type Catalog struct {
	categories []categoryEntry
}

type categoryEntry struct {
	name          string
	subcategories []subcategoryEntry
}

type subcategoryEntry struct {
	name   string
	labels []string
}

// Load reads and parses a catalog yaml file. Any read or parse failure is
// fatal for the command — without a catalog there are no questions to offer.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read catalog at %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses catalog yaml. The document is decoded via yaml.Node rather
// than a map so that category and subcategory order match the file.
func Parse(data []byte) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid catalog yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return &Catalog{}, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("invalid catalog: top level must be a mapping of categories")
	}

	c := &Catalog{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		catKey := root.Content[i]
		catVal := root.Content[i+1]
		if catVal.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("invalid catalog: category %q must map subcategories to label lists", catKey.Value)
		}

		cat := categoryEntry{name: catKey.Value}
		for j := 0; j+1 < len(catVal.Content); j += 2 {
			subKey := catVal.Content[j]
			subVal := catVal.Content[j+1]
			if subVal.Kind != yaml.SequenceNode {
				return nil, fmt.Errorf("invalid catalog: %s/%s must be a list of labels", catKey.Value, subKey.Value)
			}

			sub := subcategoryEntry{name: subKey.Value}
			for _, item := range subVal.Content {
				label := strings.TrimSpace(item.Value)
				if label == "" {
					continue
				}
				sub.labels = append(sub.labels, label)
			}
			cat.subcategories = append(cat.subcategories, sub)
		}
		c.categories = append(c.categories, cat)
	}
	return c, nil
}

// Flatten emits every question in the catalog as an ordered record sequence.
// Pure function of the catalog: same input yields the same records in the
// same order.
func (c *Catalog) Flatten() []QuestionRecord {
	var records []QuestionRecord
	for _, cat := range c.categories {
		for _, sub := range cat.subcategories {
			for _, label := range sub.labels {
				records = append(records, QuestionRecord{
					ID:          MakeID(cat.name, sub.name, label),
					Category:    cat.name,
					Subcategory: sub.name,
					Label:       label,
				})
			}
		}
	}
	return records
}

// Index maps record ids to records. When two source entries collide on id,
// the later entry wins.
func Index(records []QuestionRecord) map[string]QuestionRecord {
	idx := make(map[string]QuestionRecord, len(records))
	for _, r := range records {
		idx[r.ID] = r
	}
	return idx
}

// Filter narrows records by category and subcategory. An empty selector
// matches everything, so Filter(records, "", "") returns the full set.
func Filter(records []QuestionRecord, category, subcategory string) []QuestionRecord {
	if category == "" && subcategory == "" {
		return records
	}
	var out []QuestionRecord
	for _, r := range records {
		if category != "" && r.Category != category {
			continue
		}
		if subcategory != "" && r.Subcategory != subcategory {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Categories lists category names in catalog order.
func (c *Catalog) Categories() []string {
	var names []string
	for _, cat := range c.categories {
		names = append(names, cat.name)
	}
	return names
}

// Subcategories lists subcategory names for a category, in catalog order.
func (c *Catalog) Subcategories(category string) []string {
	for _, cat := range c.categories {
		if cat.name != category {
			continue
		}
		var names []string
		for _, sub := range cat.subcategories {
			names = append(names, sub.name)
		}
		return names
	}
	return nil
}
