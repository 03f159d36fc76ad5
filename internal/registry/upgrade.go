package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	schemaVersionKernel4 = "http://datacite.org/schema/kernel-4"
	defaultResourceType  = "Dataset"
	defaultPublisher     = "GFZ Data Services"

	// fabricaBase is the registry's manual web editor; repair failures that
	// need a human point operators there.
	fabricaBase = "https://doi.datacite.org/dois/"
)

// ErrSchemaUpgrade marks a write that still failed after the automatic
// legacy-schema repair, so callers can report it distinctly from a plain
// data rejection.
var ErrSchemaUpgrade = errors.New("schema upgrade failed")

// isDeprecatedSchema matches the validator message for documents declared
// under a retired schema version (kernel-3 and older).
func isDeprecatedSchema(title string) bool {
	t := strings.ToLower(title)
	return strings.Contains(t, "schema") && strings.Contains(t, "no longer supported")
}

// isMissingSchemaDeclaration matches the validator message for documents
// with no schema version declared at all.
func isMissingSchemaDeclaration(title string) bool {
	return strings.Contains(strings.ToLower(title), "no matching global declaration")
}

// repairAndRetry upgrades a legacy document to the current schema and
// re-issues the rejected write exactly once.
//
// The failing write may have been narrower than the stored record, so the
// document is re-fetched independently before deciding what is missing.
// resourceTypeGeneral and publisher are auto-fillable; title and creators
// are not and abort the repair with a pointer to the manual editor. Funder
// contributors (retired in the current schema) migrate to funding
// references. fullRepair is false when only the schema declaration is
// absent, which skips the mandatory-field pass.
func (c *Client) repairAndRetry(ctx context.Context, doi string, doc *Document, fullRepair bool) error {
	if c.metrics != nil {
		c.metrics.IncrementSchemaUpgrades()
	}

	fresh, err := c.Fetch(ctx, doi)
	if err != nil {
		return fmt.Errorf("re-fetch for schema upgrade of %s: %w", doi, err)
	}

	if fullRepair {
		blocked := nonAutofillable(missingMandatoryFields(fresh.Attributes))
		if len(blocked) > 0 {
			return fmt.Errorf(
				"cannot upgrade %s automatically: %s missing and cannot be auto-filled; complete the record manually at %s%s",
				doi, strings.Join(blocked, ", "), fabricaBase, doi,
			)
		}
		fillResourceTypeGeneral(doc.Attributes, fresh.Attributes)
		fillPublisher(doc.Attributes, fresh.Attributes)
	}

	migrateFunders(doc.Attributes)
	doc.Attributes["schemaVersion"] = schemaVersionKernel4

	c.logger.Info("re-issuing write with repaired document", "doi", doi)
	if err := c.put(ctx, doi, doc); err != nil {
		return fmt.Errorf("%w for %s: %v", ErrSchemaUpgrade, doi, err)
	}
	c.logger.Info("schema upgrade succeeded", "doi", doi)
	return nil
}

// missingMandatoryFields reports which current-schema mandatory fields the
// stored record lacks.
func missingMandatoryFields(attrs map[string]any) []string {
	var missing []string
	if titles, ok := attrs["titles"].([]any); !ok || len(titles) == 0 {
		missing = append(missing, "title")
	}
	if creators, ok := attrs["creators"].([]any); !ok || len(creators) == 0 {
		missing = append(missing, "creators")
	}
	if resourceTypeGeneral(attrs) == "" {
		missing = append(missing, "resourceTypeGeneral")
	}
	if publisherName(attrs) == "" {
		missing = append(missing, "publisher")
	}
	return missing
}

// nonAutofillable filters the missing-field list down to the fields no
// default exists for.
func nonAutofillable(missing []string) []string {
	var blocked []string
	for _, field := range missing {
		if field == "title" || field == "creators" {
			blocked = append(blocked, field)
		}
	}
	return blocked
}

func resourceTypeGeneral(attrs map[string]any) string {
	types, ok := attrs["types"].(map[string]any)
	if !ok {
		return ""
	}
	return str(types, "resourceTypeGeneral")
}

func publisherName(attrs map[string]any) string {
	switch v := attrs["publisher"].(type) {
	case string:
		return v
	case map[string]any:
		return str(v, "name")
	default:
		return ""
	}
}

func fillResourceTypeGeneral(attrs, fresh map[string]any) {
	if resourceTypeGeneral(attrs) != "" {
		return
	}
	value := resourceTypeGeneral(fresh)
	if value == "" {
		value = defaultResourceType
	}
	types, ok := attrs["types"].(map[string]any)
	if !ok {
		types = map[string]any{}
	}
	types["resourceTypeGeneral"] = value
	attrs["types"] = types
}

func fillPublisher(attrs, fresh map[string]any) {
	if publisherName(attrs) != "" {
		return
	}
	if name := publisherName(fresh); name != "" {
		attrs["publisher"] = fresh["publisher"]
		return
	}
	attrs["publisher"] = defaultPublisher
}

// migrateFunders moves contributors whose role is Funder into the funding
// references array, carrying the name and any recognized identifier.
func migrateFunders(attrs map[string]any) {
	contributors, ok := attrs["contributors"].([]any)
	if !ok || len(contributors) == 0 {
		return
	}

	refs, _ := attrs["fundingReferences"].([]any)
	var remaining []any
	for _, raw := range contributors {
		m, ok := raw.(map[string]any)
		if !ok || str(m, "contributorType") != "Funder" {
			remaining = append(remaining, raw)
			continue
		}
		ref := map[string]any{"funderName": str(m, "name")}
		if ids, ok := m["nameIdentifiers"].([]any); ok && len(ids) > 0 {
			if id, ok := ids[0].(map[string]any); ok {
				ref["funderIdentifier"] = str(id, "nameIdentifier")
				ref["funderIdentifierType"] = str(id, "nameIdentifierScheme")
			}
		}
		refs = append(refs, ref)
	}

	if len(remaining) > 0 {
		attrs["contributors"] = remaining
	} else {
		delete(attrs, "contributors")
	}
	if len(refs) > 0 {
		attrs["fundingReferences"] = refs
	}
}
