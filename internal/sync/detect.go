package sync

import (
	"fmt"
	"strings"

	"grobi/internal/registry"
	"grobi/internal/sync/models"
)

// maxReportedDiffs caps how many concrete differences a change description
// spells out; the rest collapse into a trailing count.
const maxReportedDiffs = 3

// NormalizeIdentifier strips the orcid.org URL prefix so identifiers from
// either store compare on the bare token. Normalization is idempotent;
// the remaining token is compared case-sensitively.
func NormalizeIdentifier(id string) string {
	if id == "" {
		return ""
	}
	id = strings.TrimPrefix(id, "https://orcid.org/")
	id = strings.TrimPrefix(id, "http://orcid.org/")
	return id
}

func describeDiffs(diffs []string) string {
	desc := strings.Join(diffs[:min(len(diffs), maxReportedDiffs)], "; ")
	if extra := len(diffs) - maxReportedDiffs; extra > 0 {
		desc += fmt.Sprintf(" (+%d more)", extra)
	}
	return desc
}

// detectCreatorChanges compares the document's creators with the desired
// rows. Creator order is meaningful, so the lists compare positionally and a
// count mismatch alone is a change.
func detectCreatorChanges(doc *registry.Document, desired []models.Entity) (bool, string) {
	current := doc.Creators()

	if len(current) != len(desired) {
		return true, fmt.Sprintf("creator count differs (remote: %d, desired: %d)", len(current), len(desired))
	}
	if len(current) == 0 {
		return false, "no creators present"
	}

	var diffs []string
	for i, cur := range current {
		want := desired[i]
		pos := i + 1

		if cur.Name != want.Name {
			diffs = append(diffs, fmt.Sprintf("creator %d: Name '%s' → '%s'", pos, cur.Name, want.Name))
		}

		curType := defaultPersonal(cur.NameType)
		wantType := defaultPersonal(want.NameType)
		if curType != wantType {
			diffs = append(diffs, fmt.Sprintf("creator %d: NameType '%s' → '%s'", pos, curType, wantType))
		}

		// Given and family names only exist on personal entries.
		if wantType == nameTypePersonal {
			if cur.GivenName != want.GivenName {
				diffs = append(diffs, fmt.Sprintf("creator %d: GivenName '%s' → '%s'", pos, cur.GivenName, want.GivenName))
			}
			if cur.FamilyName != want.FamilyName {
				diffs = append(diffs, fmt.Sprintf("creator %d: FamilyName '%s' → '%s'", pos, cur.FamilyName, want.FamilyName))
			}
		}

		curID := NormalizeIdentifier(cur.Identifier)
		wantID := NormalizeIdentifier(want.Identifier)
		if curID != wantID {
			diffs = append(diffs, fmt.Sprintf("creator %d: Identifier '%s' → '%s'", pos, curID, wantID))
		}
	}

	if len(diffs) > 0 {
		return true, describeDiffs(diffs)
	}
	return false, "no changes in creator metadata"
}

// detectContributorChanges compares contributors by name rather than by
// position: contributor order carries no meaning. Desired entries without a
// name match are themselves differences, and local-only contact attributes
// always force an update because the registry never stores them.
func detectContributorChanges(doc *registry.Document, desired []models.Entity) (bool, string) {
	current := doc.Contributors()

	var diffs []string
	for _, want := range desired {
		cur, found := matchByName(current, want.Name)
		if !found {
			diffs = append(diffs, fmt.Sprintf("contributor '%s' not found in remote", want.Name))
		} else {
			curType := defaultPersonal(cur.NameType)
			wantType := defaultPersonal(want.NameType)
			if curType != wantType {
				diffs = append(diffs, fmt.Sprintf("contributor '%s': NameType '%s' → '%s'", want.Name, curType, wantType))
			}
			if wantType == nameTypePersonal {
				if cur.GivenName != want.GivenName {
					diffs = append(diffs, fmt.Sprintf("contributor '%s': GivenName '%s' → '%s'", want.Name, cur.GivenName, want.GivenName))
				}
				if cur.FamilyName != want.FamilyName {
					diffs = append(diffs, fmt.Sprintf("contributor '%s': FamilyName '%s' → '%s'", want.Name, cur.FamilyName, want.FamilyName))
				}
			}
			curID := NormalizeIdentifier(cur.Identifier)
			wantID := NormalizeIdentifier(want.Identifier)
			if curID != wantID {
				diffs = append(diffs, fmt.Sprintf("contributor '%s': Identifier '%s' → '%s'", want.Name, curID, wantID))
			}
			// The registry stores exactly one type per contributor, so only
			// the first desired type takes part in the comparison.
			wantRole := ""
			if len(want.ContributorTypes) > 0 {
				wantRole = want.ContributorTypes[0]
			}
			if cur.ContributorType != wantRole {
				diffs = append(diffs, fmt.Sprintf("contributor '%s': ContributorType '%s' → '%s'", want.Name, cur.ContributorType, wantRole))
			}
		}

		if want.HasLocalOnlyFields() {
			diffs = append(diffs, fmt.Sprintf("contributor '%s': contact attributes present (local store only)", want.Name))
		}
	}

	if len(diffs) > 0 {
		return true, describeDiffs(diffs)
	}
	return false, "no changes in contributor metadata"
}

// detectPublisherChanges normalizes the remote publisher, legacy bare string
// or current object form, into five canonical fields and compares field by
// field against the single desired entity.
func detectPublisherChanges(doc *registry.Document, desired []models.Entity) (bool, string) {
	cur := doc.Publisher()
	var want models.Entity
	if len(desired) > 0 {
		want = desired[0]
	}

	var diffs []string
	compare := func(field, curVal, wantVal string) {
		if curVal != wantVal {
			diffs = append(diffs, fmt.Sprintf("%s: '%s' → '%s'", field, curVal, wantVal))
		}
	}
	compare("Name", cur.Name, want.Name)
	compare("Identifier", cur.Identifier, want.Identifier)
	compare("Scheme", cur.Scheme, want.IdentifierScheme)
	compare("SchemeURI", cur.SchemeURI, want.SchemeURI)
	compare("Language", cur.Lang, want.Lang)

	if len(diffs) > 0 {
		return true, describeDiffs(diffs)
	}
	return false, "no changes in publisher metadata"
}

const nameTypePersonal = "Personal"

func defaultPersonal(nameType string) string {
	if nameType == "" {
		return nameTypePersonal
	}
	return nameType
}

func matchByName(agents []registry.Agent, name string) (registry.Agent, bool) {
	want := strings.TrimSpace(name)
	for _, a := range agents {
		if strings.EqualFold(strings.TrimSpace(a.Name), want) {
			return a, true
		}
	}
	return registry.Agent{}, false
}
