package models

import (
	"time"

	"hdi-prep/chem"

	"gorm.io/datatypes"
)

// Fingerprint sources.
const (
	SourceChEMBL = "chembl"
	SourceNP     = "np"
)

// Fingerprint is one computed fingerprint together with the identifiers
// carried over from its input row.
type Fingerprint struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Source     string `json:"source" gorm:"index;not null"`
	ExternalID string `json:"external_id" gorm:"index"` // molregno or np_id
	ChEMBLID   string `json:"chembl_id,omitempty" gorm:"column:chembl_id"`
	InChI      string `json:"inchi,omitempty" gorm:"column:inchi;type:text"`
	InChIKey   string `json:"inchi_key,omitempty" gorm:"column:inchi_key;index"`

	NumBits int            `json:"num_bits"`
	Vector  datatypes.JSON `json:"vector" gorm:"type:json"`

	Bits chem.Fingerprint `json:"-" gorm:"-"`
}

// TableName pins the GORM table name.
func (Fingerprint) TableName() string {
	return "compound_fingerprints"
}

// NewFingerprint returns an identified record whose vector is set later
// through SetBits.
func NewFingerprint(source, externalID string) *Fingerprint {
	return &Fingerprint{Source: source, ExternalID: externalID}
}

// SetBits stores the vector and its persisted JSON form.
func (f *Fingerprint) SetBits(bits chem.Fingerprint) {
	f.Bits = bits
	f.NumBits = len(bits)
	f.Vector = datatypes.JSON(bits.JSON())
}
