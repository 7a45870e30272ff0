package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// FactType classifies a discovered fact
type FactType string

const (
	FactRoot            FactType = "ROOT"                    // Scan target, never dispatched to units
	FactEmailAddress    FactType = "EMAILADDR"               // Email address
	FactRawData         FactType = "RAW_RIR_DATA"            // Free-form text from a data provider
	FactPhoneNumber     FactType = "PHONE_NUMBER"            // Phone number
	FactPhysicalAddress FactType = "PHYSICAL_ADDRESS"        // Postal / street address
	FactAffiliateDomain FactType = "AFFILIATE_INTERNET_NAME" // Domain belonging to an affiliate
)

// Fact is a discrete piece of information discovered during a run.
// Source links a fact to the fact it was derived from; only the root has a nil Source.
type Fact struct {
	ID        string    `json:"id" yaml:"id"`
	Type      FactType  `json:"type" yaml:"type"`
	Data      string    `json:"data" yaml:"data"`
	Module    string    `json:"module,omitempty" yaml:"module,omitempty"`
	Source    *Fact     `json:"-" yaml:"-"`
	Depth     int       `json:"depth" yaml:"depth"`
	Generated time.Time `json:"generated" yaml:"generated"`
}

// NewRootFact creates the root fact for a run
func NewRootFact(target string) *Fact {
	return NewFact(FactRoot, target, "", nil)
}

// NewFact creates a fact produced by module and derived from source
func NewFact(factType FactType, data string, module string, source *Fact) *Fact {
	f := &Fact{
		Type:      factType,
		Data:      data,
		Module:    module,
		Source:    source,
		Generated: time.Now().UTC(),
	}
	if source != nil {
		f.Depth = source.Depth + 1
	}
	f.ID = factID(f)
	return f
}

// SourceID returns the ID of the fact this one was derived from, or "" for the root
func (f *Fact) SourceID() string {
	if f.Source == nil {
		return ""
	}
	return f.Source.ID
}

// Chain walks provenance from this fact back to the root
func (f *Fact) Chain() []*Fact {
	var chain []*Fact
	for cur := f; cur != nil; cur = cur.Source {
		chain = append(chain, cur)
	}
	return chain
}

func factID(f *Fact) string {
	h := sha256.New()
	h.Write([]byte(f.Type))
	h.Write([]byte{0})
	h.Write([]byte(f.Data))
	h.Write([]byte{0})
	h.Write([]byte(f.Module))
	h.Write([]byte{0})
	h.Write([]byte(f.SourceID()))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
