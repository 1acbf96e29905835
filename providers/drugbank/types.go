// Package drugbank decodes drug records from the DrugBank XML dump.
package drugbank

// Namespace is the default namespace of DrugBank documents.
const Namespace = "http://www.drugbank.ca"

// Drug is one top-level <drug> record, reduced to the fields the
// enzyme relationship table needs.
type Drug struct {
	IDs                 []DrugID             `xml:"drugbank-id"`
	Name                string               `xml:"name"`
	ExternalIdentifiers []ExternalIdentifier `xml:"external-identifiers>external-identifier"`
	Enzymes             []Enzyme             `xml:"enzymes>enzyme"`
}

// DrugID is a drugbank-id element; one of them carries primary="true".
type DrugID struct {
	Primary string `xml:"primary,attr"`
	Value   string `xml:",chardata"`
}

// ExternalIdentifier cross-references the drug in another database.
type ExternalIdentifier struct {
	Resource   string `xml:"resource"`
	Identifier string `xml:"identifier"`
}

// Enzyme is a metabolizing protein entry of a drug.
type Enzyme struct {
	Name         string        `xml:"name"`
	Organisms    []Organism    `xml:"organism"`
	Actions      []string      `xml:"actions>action"`
	Polypeptides []Polypeptide `xml:"polypeptide"`
}

// Organism names the species an enzyme comes from.
type Organism struct {
	Name       string `xml:",chardata"`
	TaxonomyID string `xml:"ncbi-taxonomy-id,attr"`
}

// Polypeptide is the protein chain behind an enzyme entry.
type Polypeptide struct {
	ID       string `xml:"id,attr"`
	GeneName string `xml:"gene-name"`
}

// PrimaryID returns the first drugbank-id flagged as primary, or "".
func (d *Drug) PrimaryID() string {
	for _, id := range d.IDs {
		if id.Primary == "true" {
			return id.Value
		}
	}
	return ""
}

// CrossReference returns the identifier of the first external identifier
// whose resource equals resource, or "".
func (d *Drug) CrossReference(resource string) string {
	for _, ext := range d.ExternalIdentifiers {
		if ext.Resource == resource {
			return ext.Identifier
		}
	}
	return ""
}
