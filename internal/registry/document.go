package registry

import "strings"

// Document is the full registry record for one identifier. Attributes keeps
// the raw attribute map exactly as the registry returned it, so a write sends
// the whole record back with only the edited facet replaced. The same
// fetched document serves as both diff basis and write basis within one
// identifier's processing.
type Document struct {
	DOI        string
	Attributes map[string]any
}

// Agent is one canonical creator or contributor entry extracted from a
// document. Identifier carries the first recognized name identifier.
type Agent struct {
	Name             string
	NameType         string
	GivenName        string
	FamilyName       string
	ContributorType  string
	Identifier       string
	IdentifierScheme string
	SchemeURI        string
}

// Publisher is the canonical form of the publisher facet. Legacy documents
// store the publisher as a bare name string, current ones as an object; both
// normalize into the same five fields.
type Publisher struct {
	Name       string
	Identifier string
	Scheme     string
	SchemeURI  string
	Lang       string
}

// Creators returns the document's creators in document order.
func (d *Document) Creators() []Agent {
	return agentsFrom(d.Attributes["creators"])
}

// Contributors returns the document's contributors in document order.
func (d *Document) Contributors() []Agent {
	return agentsFrom(d.Attributes["contributors"])
}

// Publisher normalizes the publisher attribute into canonical fields.
func (d *Document) Publisher() Publisher {
	switch v := d.Attributes["publisher"].(type) {
	case string:
		return Publisher{Name: v}
	case map[string]any:
		return Publisher{
			Name:       str(v, "name"),
			Identifier: str(v, "publisherIdentifier"),
			Scheme:     str(v, "publisherIdentifierScheme"),
			SchemeURI:  str(v, "schemeUri"),
			Lang:       str(v, "lang"),
		}
	default:
		return Publisher{}
	}
}

func agentsFrom(v any) []Agent {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	agents := make([]Agent, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		a := Agent{
			Name:            str(m, "name"),
			NameType:        str(m, "nameType"),
			GivenName:       str(m, "givenName"),
			FamilyName:      str(m, "familyName"),
			ContributorType: str(m, "contributorType"),
		}
		// Prefer the ORCID-scheme identifier, fall back to the first one.
		if ids, ok := m["nameIdentifiers"].([]any); ok && len(ids) > 0 {
			chosen, _ := ids[0].(map[string]any)
			for _, raw := range ids {
				id, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				if strings.EqualFold(str(id, "nameIdentifierScheme"), "ORCID") {
					chosen = id
					break
				}
			}
			if chosen != nil {
				a.Identifier = str(chosen, "nameIdentifier")
				a.IdentifierScheme = str(chosen, "nameIdentifierScheme")
				a.SchemeURI = str(chosen, "schemeUri")
			}
		}
		agents = append(agents, a)
	}
	return agents
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
