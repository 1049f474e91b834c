// Package gene decodes the packed genes string carried by every unit.
//
// Only the 256-bit layout is understood. The string is a hex number, padded
// on the left to 256 bits and split into fixed-width groups:
//
//	class(4) - region(5) tag(5) skin(4) xmas(12) pattern(18) color(12)
//	eyes(32) mouth(32) ears(32) horn(32) back(32) tail(32)
//
// Each part group holds a 2-bit skin followed by three 10-bit alleles
// (dominant, recessive 1, recessive 2), each a 4-bit class and a 6-bit code.
package gene

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"axie-market-cache/internal/model"
)

const geneBits = 256

// ErrInvalidGenes is wrapped by every decode failure.
var ErrInvalidGenes = errors.New("invalid genes")

// Decoder turns a genes string into a trait breakdown and a quality score.
type Decoder interface {
	Decode(genes string) (model.GeneBreakdown, int, error)
}

// PartTypes lists the body parts in layout order.
var PartTypes = []string{"eyes", "mouth", "ears", "horn", "back", "tail"}

var classes = map[string]string{
	"0000": "beast",
	"0001": "bug",
	"0010": "bird",
	"0011": "plant",
	"0100": "aquatic",
	"0101": "reptile",
	"1000": "mech",
	"1001": "dawn",
	"1010": "dusk",
}

var regions = map[string]string{
	"00000": "global",
	"00001": "japan",
}

// AxieDecoder implements Decoder for the 256-bit layout.
type AxieDecoder struct{}

// NewDecoder creates a gene decoder.
func NewDecoder() *AxieDecoder {
	return &AxieDecoder{}
}

// Decode parses genes and scores how many alleles share the unit's class.
// The result depends only on the input string.
func (AxieDecoder) Decode(genes string) (model.GeneBreakdown, int, error) {
	bin, err := toBinary(genes)
	if err != nil {
		return model.GeneBreakdown{}, 0, model.E(model.KindDecode, "gene.Decode", err)
	}

	cls, ok := classes[bin[0:4]]
	if !ok {
		return model.GeneBreakdown{}, 0, model.Errorf(model.KindDecode, "gene.Decode",
			"%w: unknown class bits %s", ErrInvalidGenes, bin[0:4])
	}

	region, ok := regions[bin[8:13]]
	if !ok {
		region = "unknown"
	}

	out := model.GeneBreakdown{
		Class:   cls,
		Region:  region,
		Pattern: splitTrait(bin[34:52], 6),
		Color:   splitTrait(bin[52:64], 4),
		Parts:   make(map[string]model.PartGene, len(PartTypes)),
	}

	var quality float64
	for i, partType := range PartTypes {
		start := 64 + i*32
		part, err := parsePart(bin[start : start+32])
		if err != nil {
			return model.GeneBreakdown{}, 0, model.Errorf(model.KindDecode, "gene.Decode",
				"%s: %w", partType, err)
		}
		out.Parts[partType] = part
		quality += partQuality(part, cls)
	}

	return out, int(math.Round(quality)), nil
}

// partQuality weighs a part at 100/6 when all three alleles match cls.
func partQuality(p model.PartGene, cls string) float64 {
	var q float64
	if p.D.Class == cls {
		q += 76.0 / 6.0
	}
	if p.R1.Class == cls {
		q += 3
	}
	if p.R2.Class == cls {
		q += 1
	}
	return q
}

func parsePart(bin string) (model.PartGene, error) {
	d, err := parseAllele(bin[2:12])
	if err != nil {
		return model.PartGene{}, err
	}
	r1, err := parseAllele(bin[12:22])
	if err != nil {
		return model.PartGene{}, err
	}
	r2, err := parseAllele(bin[22:32])
	if err != nil {
		return model.PartGene{}, err
	}
	return model.PartGene{
		Skin: int(bitsValue(bin[0:2])),
		D:    d,
		R1:   r1,
		R2:   r2,
	}, nil
}

func parseAllele(bin string) (model.Allele, error) {
	cls, ok := classes[bin[0:4]]
	if !ok {
		return model.Allele{}, fmt.Errorf("%w: unknown allele class bits %s", ErrInvalidGenes, bin[0:4])
	}
	return model.Allele{Class: cls, Code: bin[4:10]}, nil
}

func splitTrait(bin string, width int) model.TraitGenes {
	return model.TraitGenes{
		D:  bin[0:width],
		R1: bin[width : 2*width],
		R2: bin[2*width : 3*width],
	}
}

func bitsValue(bin string) uint64 {
	var v uint64
	for _, c := range bin {
		v <<= 1
		if c == '1' {
			v |= 1
		}
	}
	return v
}

// toBinary validates a hex genes string and returns it as a 256 character
// string of '0' and '1'.
func toBinary(genes string) (string, error) {
	s := strings.TrimSpace(genes)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidGenes)
	}

	n, ok := new(big.Int).SetString(s, 16)
	if !ok || n.Sign() < 0 {
		return "", fmt.Errorf("%w: not a hex string", ErrInvalidGenes)
	}
	if n.BitLen() > geneBits {
		return "", fmt.Errorf("%w: unsupported width of %d bits", ErrInvalidGenes, n.BitLen())
	}

	bin := n.Text(2)
	return strings.Repeat("0", geneBits-len(bin)) + bin, nil
}
