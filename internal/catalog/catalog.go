// Package catalog loads the coded characteristics available for segment
// annotation and resolves user selections into DICOM code pairs.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// NoSelection is the choice label meaning "no characteristic selected".
// Resolve treats it as an explicit absent value, never as a lookup failure.
const NoSelection = "N/A"

// Code identifies a single coded entry (value, scheme, display meaning).
type Code struct {
	Value            string `json:"CodeValue"`
	SchemeDesignator string `json:"CodingSchemeDesignator"`
	Meaning          string `json:"CodeMeaning"`
}

// Characteristic is one catalog entry: a concept name code and the ordered
// choice codes a user can pick for it.
type Characteristic struct {
	Concept Code   `json:"ConceptNameCodeSequence"`
	Choices []Code `json:"choices"`
}

// Selection is a resolved (concept, choice) code pair ready to be encoded
// as a coded content item.
type Selection struct {
	Concept Code
	Choice  Code
}

// Catalog holds the characteristic definitions in file order.
type Catalog struct {
	characteristics []Characteristic
}

// Load reads and validates a catalog from a JSON file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a catalog from JSON. The expected shape is an
// ordered array of characteristic objects:
//
//	[{"ConceptNameCodeSequence": {"CodeValue": "...", ...}, "choices": [...]}]
func Parse(r io.Reader) (*Catalog, error) {
	var characteristics []Characteristic
	dec := json.NewDecoder(r)
	if err := dec.Decode(&characteristics); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	c := &Catalog{characteristics: characteristics}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate enforces the uniqueness rules the lookup relies on: concept
// meanings are unique across the catalog and choice meanings are unique
// within one characteristic. Empty code fields are rejected as well.
func (c *Catalog) Validate() error {
	if len(c.characteristics) == 0 {
		return fmt.Errorf("catalog contains no characteristics")
	}

	seenConcepts := make(map[string]bool)
	for i, char := range c.characteristics {
		if err := checkCode(char.Concept); err != nil {
			return fmt.Errorf("characteristic %d: concept: %w", i, err)
		}
		if seenConcepts[char.Concept.Meaning] {
			return fmt.Errorf("duplicate concept %q in catalog", char.Concept.Meaning)
		}
		seenConcepts[char.Concept.Meaning] = true

		if len(char.Choices) == 0 {
			return fmt.Errorf("characteristic %q has no choices", char.Concept.Meaning)
		}
		seenChoices := make(map[string]bool)
		for j, choice := range char.Choices {
			if err := checkCode(choice); err != nil {
				return fmt.Errorf("characteristic %q: choice %d: %w", char.Concept.Meaning, j, err)
			}
			if seenChoices[choice.Meaning] {
				return fmt.Errorf("characteristic %q has duplicate choice %q", char.Concept.Meaning, choice.Meaning)
			}
			seenChoices[choice.Meaning] = true
		}
	}
	return nil
}

func checkCode(code Code) error {
	if code.Value == "" {
		return fmt.Errorf("empty CodeValue")
	}
	if code.SchemeDesignator == "" {
		return fmt.Errorf("empty CodingSchemeDesignator")
	}
	if code.Meaning == "" {
		return fmt.Errorf("empty CodeMeaning")
	}
	return nil
}

// Characteristics returns the definitions in file order.
func (c *Catalog) Characteristics() []Characteristic {
	return c.characteristics
}

// Len returns the number of characteristics.
func (c *Catalog) Len() int {
	return len(c.characteristics)
}

// Concepts returns the concept display meanings in file order.
func (c *Catalog) Concepts() []string {
	concepts := make([]string, len(c.characteristics))
	for i, char := range c.characteristics {
		concepts[i] = char.Concept.Meaning
	}
	return concepts
}

// ChoicesFor returns the choice display meanings for a concept, in file
// order, or nil when the concept is unknown.
func (c *Catalog) ChoicesFor(conceptName string) []string {
	for _, char := range c.characteristics {
		if char.Concept.Meaning == conceptName {
			labels := make([]string, len(char.Choices))
			for i, choice := range char.Choices {
				labels[i] = choice.Meaning
			}
			return labels
		}
	}
	return nil
}
