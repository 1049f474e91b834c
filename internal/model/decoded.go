package model

// DecodedUnit is a single unit fetched through the detail query with its
// genes decoded.
type DecodedUnit struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Class      string         `json:"class"`
	Owner      string         `json:"owner"`
	OwnerName  string         `json:"owner_name,omitempty"`
	BreedCount int            `json:"breed_count"`
	SireID     int64          `json:"sire_id,omitempty"`
	MatronID   int64          `json:"matron_id,omitempty"`
	Banned     bool           `json:"banned"`
	Children   []ChildSummary `json:"children,omitempty"`
	Stats      Stats          `json:"stats"`
	Parts      []Part         `json:"parts"`
	Genes      GeneBreakdown  `json:"genes"`
	Quality    int            `json:"quality"`
}

// RecordID returns the unit identity.
func (d DecodedUnit) RecordID() string { return d.ID }

// ChildSummary is the short form of an offspring returned by the detail query.
type ChildSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Class string `json:"class"`
	Image string `json:"image"`
	Title string `json:"title"`
	Stage int    `json:"stage"`
}

// GeneBreakdown is the decoded form of a genes string.
type GeneBreakdown struct {
	Class   string              `json:"class"`
	Region  string              `json:"region"`
	Pattern TraitGenes          `json:"pattern"`
	Color   TraitGenes          `json:"color"`
	Parts   map[string]PartGene `json:"parts"`
}

// TraitGenes holds the raw dominant and recessive codes of a non-part trait.
type TraitGenes struct {
	D  string `json:"d"`
	R1 string `json:"r1"`
	R2 string `json:"r2"`
}

// PartGene holds the alleles of one body part.
type PartGene struct {
	Skin int    `json:"skin"`
	D    Allele `json:"d"`
	R1   Allele `json:"r1"`
	R2   Allele `json:"r2"`
}

// Allele is one gene slot: the class it comes from and the part code within
// that class.
type Allele struct {
	Class string `json:"class"`
	Code  string `json:"code"`
}
