package models

import "time"

// EnzymeHeader is the fixed column order of the relationship table.
var EnzymeHeader = []string{
	"drugbank_id", "drug_name", "chembl_id", "enzyme_name", "uniprot_id",
	"gene_name", "action", "organism", "tax_id", "source",
}

// EnzymeRelationship is one drug × enzyme × action row.
type EnzymeRelationship struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	DrugBankID string `json:"drugbank_id" gorm:"column:drugbank_id;index"`
	DrugName   string `json:"drug_name"`
	ChEMBLID   string `json:"chembl_id" gorm:"column:chembl_id;index"`
	EnzymeName string `json:"enzyme_name"`
	UniProtID  string `json:"uniprot_id" gorm:"column:uniprot_id;index"`
	GeneName   string `json:"gene_name"`
	Action     string `json:"action"`
	Organism   string `json:"organism"`
	TaxID      string `json:"tax_id"`
	Source     string `json:"source" gorm:"index;not null"`
}

// TableName pins the GORM table name.
func (EnzymeRelationship) TableName() string {
	return "drug_enzyme_actions"
}

// CSVRecord returns the row in EnzymeHeader order.
func (r EnzymeRelationship) CSVRecord() []string {
	return []string{
		r.DrugBankID, r.DrugName, r.ChEMBLID, r.EnzymeName, r.UniProtID,
		r.GeneName, r.Action, r.Organism, r.TaxID, r.Source,
	}
}
