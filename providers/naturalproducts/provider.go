// Package naturalproducts reads the merged natural-product table, where each
// row identifies its structure by an InChI string.
package naturalproducts

import (
	"hdi-prep/chem"
	"hdi-prep/models"
	"hdi-prep/providers"
	"hdi-prep/storage"
)

// Input columns. ChEMBLID and StandardInChIKey may be absent from the table.
const (
	ColStandardInChI    = "standard_inchi"
	ColInChI            = "InChI"
	ColNPID             = "np_id"
	ColChEMBLID         = "chembl_id"
	ColStandardInChIKey = "standard_inchi_key"
)

// Output columns.
const (
	OutInChI    = "np_inchi"
	OutInChIKey = "np_inchi_key"
)

var header = []string{"source", "np_id", "chembl_id", OutInChI, OutInChIKey, "fingerprint"}

// Header returns the output column order, shared with the repair pass.
func Header() []string { return append([]string(nil), header...) }

// sentinels mark an identifier cell as unusable.
var sentinels = map[string]bool{"": true, "n.a.": true, "NA": true}

// Provider turns natural-product rows into fingerprint candidates.
type Provider struct{}

var _ providers.Provider = (*Provider)(nil)

// New returns the natural-product provider.
func New() *Provider { return &Provider{} }

func (p *Provider) Name() string { return models.SourceNP }

func (p *Provider) RequiredColumns() []string {
	return []string{ColStandardInChI, ColInChI, ColNPID}
}

func (p *Provider) Header() []string { return header }

// ChooseInChI prefers the standard InChI and falls back to the InChI column.
// It returns false when neither is usable.
func ChooseInChI(row storage.Row) (string, bool) {
	for _, col := range []string{ColStandardInChI, ColInChI} {
		if v := row[col]; !sentinels[v] {
			return v, true
		}
	}
	return "", false
}

func (p *Provider) Candidate(row storage.Row) (providers.Candidate, bool) {
	inchi, ok := ChooseInChI(row)
	if !ok {
		return providers.Candidate{}, false
	}
	rec := models.NewFingerprint(models.SourceNP, row[ColNPID])
	rec.ChEMBLID = row[ColChEMBLID]
	rec.InChI = inchi
	rec.InChIKey = row[ColStandardInChIKey]
	return providers.Candidate{Format: chem.FormatInChI, Structure: inchi, Record: rec}, true
}

func (p *Provider) Values(rec *models.Fingerprint) []string {
	return []string{rec.Source, rec.ExternalID, rec.ChEMBLID, rec.InChI, rec.InChIKey, rec.Bits.String()}
}
