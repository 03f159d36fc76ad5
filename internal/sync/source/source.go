// Package source parses desired-state batch documents. Malformed rows are
// this package's responsibility: what it hands to the orchestrator is
// structurally sound, with soft problems reported as warnings.
package source

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"grobi/internal/sync/models"
	pstrings "grobi/pkg/platform/strings"
)

//go:embed batch.schema.json
var batchSchema []byte

// Source produces the desired rows for one batch, keyed and ordered as
// submitted.
type Source interface {
	Parse(facet models.Facet, r io.Reader) ([]models.Item, []string, error)
}

// JSON parses a JSON batch document and validates it against the embedded
// schema before any row-level checks run.
type JSON struct {
	schema *jsonschema.Schema
}

// NewJSON compiles the embedded batch schema.
func NewJSON() (*JSON, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(batchSchema))
	if err != nil {
		return nil, fmt.Errorf("decode batch schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("batch.schema.json", doc); err != nil {
		return nil, fmt.Errorf("register batch schema: %w", err)
	}
	schema, err := compiler.Compile("batch.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile batch schema: %w", err)
	}
	return &JSON{schema: schema}, nil
}

// Parse reads one batch document and returns its items in submission order,
// plus warnings for every row or item it had to drop. A document that fails
// schema validation is rejected outright.
func (s *JSON) Parse(facet models.Facet, r io.Reader) ([]models.Item, []string, error) {
	if !facet.Valid() {
		return nil, nil, fmt.Errorf("unknown facet %q", facet)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read batch document: %w", err)
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("decode batch document: %w", err)
	}
	if err := s.schema.Validate(instance); err != nil {
		return nil, nil, fmt.Errorf("batch document rejected: %w", err)
	}

	var raw []models.Item
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode batch document: %w", err)
	}

	var (
		items    []models.Item
		warnings []string
		seen     = make(map[string]int)
	)
	for _, item := range raw {
		item.DOI = strings.TrimSpace(item.DOI)
		if item.DOI == "" {
			warnings = append(warnings, "dropped item with blank identifier")
			continue
		}

		rows, rowWarnings := cleanRows(facet, item.DOI, item.Rows)
		warnings = append(warnings, rowWarnings...)
		if len(rows) == 0 {
			warnings = append(warnings, fmt.Sprintf("%s: no usable rows, item dropped", item.DOI))
			continue
		}
		item.Rows = rows

		// Later submissions for the same identifier replace earlier ones so
		// each identifier is processed exactly once per batch.
		if idx, dup := seen[item.DOI]; dup {
			warnings = append(warnings, fmt.Sprintf("%s: duplicate identifier, earlier rows replaced", item.DOI))
			items[idx] = item
			continue
		}
		seen[item.DOI] = len(items)
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, warnings, fmt.Errorf("batch document contains no usable items")
	}
	return items, warnings, nil
}

func cleanRows(facet models.Facet, doi string, rows []models.Entity) ([]models.Entity, []string) {
	var (
		kept     []models.Entity
		warnings []string
	)
	for i, row := range rows {
		row.Name = strings.TrimSpace(row.Name)
		if row.Name == "" {
			warnings = append(warnings, fmt.Sprintf("%s: row %d has no name, skipped", doi, i+1))
			continue
		}
		if facet == models.FacetContributors {
			row.ContributorTypes = pstrings.DedupeAndTrim(row.ContributorTypes)
			if len(row.ContributorTypes) == 0 {
				warnings = append(warnings, fmt.Sprintf("%s: contributor %q has no contributor type, skipped", doi, row.Name))
				continue
			}
		}
		kept = append(kept, row)
	}

	// The publisher facet is a single value per identifier.
	if facet == models.FacetPublisher && len(kept) > 1 {
		warnings = append(warnings, fmt.Sprintf("%s: publisher facet accepts one row, extra rows ignored", doi))
		kept = kept[:1]
	}
	return kept, warnings
}
