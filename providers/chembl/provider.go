// Package chembl reads ChEMBL compound structure tables, where each row
// carries an MDL molfile.
package chembl

import (
	"hdi-prep/chem"
	"hdi-prep/models"
	"hdi-prep/providers"
	"hdi-prep/storage"
)

// Input columns.
const (
	ColMolfile          = "molfile"
	ColMolregno         = "molregno"
	ColStandardInChI    = "standard_inchi"
	ColStandardInChIKey = "standard_inchi_key"
)

var header = []string{"source", "molregno", "standard_inchi", "standard_inchi_key", "fingerprint"}

// Provider turns ChEMBL structure rows into fingerprint candidates.
type Provider struct{}

var _ providers.Provider = (*Provider)(nil)

// New returns the ChEMBL provider.
func New() *Provider { return &Provider{} }

// Name is the source tag of every output row.
func (p *Provider) Name() string { return models.SourceChEMBL }

func (p *Provider) RequiredColumns() []string {
	return []string{ColMolfile, ColMolregno, ColStandardInChI, ColStandardInChIKey}
}

func (p *Provider) Header() []string { return header }

// Candidate uses the molfile cell; a missing molfile yields no candidate.
func (p *Provider) Candidate(row storage.Row) (providers.Candidate, bool) {
	block := row[ColMolfile]
	if block == "" {
		return providers.Candidate{}, false
	}
	rec := models.NewFingerprint(models.SourceChEMBL, row[ColMolregno])
	rec.InChI = row[ColStandardInChI]
	rec.InChIKey = row[ColStandardInChIKey]
	return providers.Candidate{Format: chem.FormatMolBlock, Structure: block, Record: rec}, true
}

func (p *Provider) Values(rec *models.Fingerprint) []string {
	return []string{rec.Source, rec.ExternalID, rec.InChI, rec.InChIKey, rec.Bits.String()}
}
