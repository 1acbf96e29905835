package drugbank

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"hdi-prep/models"
)

// UnknownAction stands in for an enzyme entry that declares no action.
const UnknownAction = "unknown"

// Decoder streams the top-level <drug> records of a DrugBank document
// without loading the whole tree.
type Decoder struct {
	d        *xml.Decoder
	depth    int
	sawRoot  bool
	finished bool
}

// NewDecoder reads a DrugBank document from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{d: xml.NewDecoder(r)}
}

// Next returns the next drug that is a direct child of the root element,
// or io.EOF once the document is complete. Syntax errors and truncated
// documents are returned as errors.
func (dec *Decoder) Next() (*Drug, error) {
	if dec.finished {
		return nil, io.EOF
	}
	for {
		tok, err := dec.d.Token()
		if errors.Is(err, io.EOF) {
			if !dec.sawRoot {
				return nil, errors.New("drugbank: document has no root element")
			}
			if dec.depth != 0 {
				return nil, fmt.Errorf("drugbank: document ends inside an element: %w", io.ErrUnexpectedEOF)
			}
			dec.finished = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("drugbank: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			dec.sawRoot = true
			if dec.depth == 1 && t.Name.Local == "drug" && t.Name.Space == Namespace {
				var drug Drug
				if err := dec.d.DecodeElement(&drug, &t); err != nil {
					return nil, fmt.Errorf("drugbank: decode drug: %w", err)
				}
				return &drug, nil
			}
			dec.depth++
		case xml.EndElement:
			dec.depth--
		}
	}
}

// Stats summarizes one extraction.
type Stats struct {
	Drugs          int
	Enzymes        int
	SkippedEnzymes int
	Rows           int
}

// Relationships flattens a drug into one row per enzyme and action.
// Enzymes without a polypeptide are left out. The second result is the
// number of such skipped enzymes.
func (d *Drug) Relationships(resource, source string) ([]models.EnzymeRelationship, int) {
	base := models.EnzymeRelationship{
		DrugBankID: d.PrimaryID(),
		DrugName:   d.Name,
		ChEMBLID:   d.CrossReference(resource),
		Source:     source,
	}
	var rows []models.EnzymeRelationship
	skipped := 0
	for _, enz := range d.Enzymes {
		if len(enz.Polypeptides) == 0 {
			skipped++
			continue
		}
		row := base
		row.EnzymeName = enz.Name
		if len(enz.Organisms) > 0 {
			row.Organism = enz.Organisms[0].Name
			row.TaxID = enz.Organisms[0].TaxonomyID
		}
		row.UniProtID = enz.Polypeptides[0].ID
		row.GeneName = enz.Polypeptides[0].GeneName

		actions := enz.Actions
		if len(actions) == 0 {
			actions = []string{UnknownAction}
		}
		for _, action := range actions {
			r := row
			r.Action = action
			rows = append(rows, r)
		}
	}
	return rows, skipped
}

// Extract decodes every drug of r and hands its rows to emit in document
// order. Drugs that produce no rows are not passed to emit.
func Extract(ctx context.Context, r io.Reader, resource, source string, emit func([]models.EnzymeRelationship) error) (Stats, error) {
	var st Stats
	dec := NewDecoder(r)
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		drug, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return st, nil
		}
		if err != nil {
			return st, err
		}
		st.Drugs++
		st.Enzymes += len(drug.Enzymes)
		rows, skipped := drug.Relationships(resource, source)
		st.SkippedEnzymes += skipped
		if len(rows) == 0 {
			continue
		}
		st.Rows += len(rows)
		if err := emit(rows); err != nil {
			return st, err
		}
	}
}
