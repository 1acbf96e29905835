package providers

import (
	"hdi-prep/chem"
	"hdi-prep/models"
	"hdi-prep/storage"
)

// Candidate is a structure pulled from one input row together with the
// identifiers that travel with it into the output.
type Candidate struct {
	Format    chem.Format
	Structure string
	Record    *models.Fingerprint
}

// Provider is implemented by every structure table source (ChEMBL, NP).
type Provider interface {
	// Name is the source tag written to every output row (e.g. "chembl").
	Name() string

	// RequiredColumns lists the input columns whose absence is fatal.
	RequiredColumns() []string

	// Header is the output column order.
	Header() []string

	// Candidate extracts the structure of a row. It returns false when the
	// row has no usable structure.
	Candidate(row storage.Row) (Candidate, bool)

	// Values renders a finished record in Header order.
	Values(rec *models.Fingerprint) []string
}
