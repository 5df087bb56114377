// Package bufrval holds the runtime value model the DDS interpreter reads
// from and writes to: Var (one decoded/to-be-encoded field) and Subset (one
// data row).
package bufrval

import (
	"github.com/metaffric/bufr/descr"
	"github.com/metaffric/bufr/varinfo"
)

// Kind enumerates the value a Var carries.
type Kind uint8

const (
	// KindMissing means no value is present.
	KindMissing Kind = iota
	// KindDouble is a decoded/decodable floating-point value.
	KindDouble
	// KindInt is an integer value (used for some element types, e.g. codes
	// and flags, where no fractional scale applies).
	KindInt
	// KindString is a character value.
	KindString
)

// Var is one data element: its table metadata, its value (if any), and the
// ordered list of F=0/X=33 attribute variables attached to it.
type Var struct {
	Code  descr.Code
	Info  *varinfo.Info
	Kind  Kind
	Dbl   float64
	Int   int64
	Str   string
	Attrs []Var
}

// NewMissing creates a Var for code/info with no value.
func NewMissing(code descr.Code, info *varinfo.Info) Var {
	return Var{Code: code, Info: info, Kind: KindMissing}
}

// NewDouble creates a Var holding a floating point value.
func NewDouble(code descr.Code, info *varinfo.Info, v float64) Var {
	return Var{Code: code, Info: info, Kind: KindDouble, Dbl: v}
}

// NewInt creates a Var holding an integer value.
func NewInt(code descr.Code, info *varinfo.Info, v int64) Var {
	return Var{Code: code, Info: info, Kind: KindInt, Int: v}
}

// NewString creates a Var holding a string value.
func NewString(code descr.Code, info *varinfo.Info, v string) Var {
	return Var{Code: code, Info: info, Kind: KindString, Str: v}
}

// IsMissing reports whether the Var carries no value.
func (v Var) IsMissing() bool {
	return v.Kind == KindMissing
}

// AsFloat64 returns the Var's value as a float64 and whether it has a
// numeric value: doubles are returned as is, integers are converted, and
// missing and string Vars report 0, false.
func (v Var) AsFloat64() (float64, bool) {
	switch v.Kind {
	case KindDouble:
		return v.Dbl, true
	case KindInt:
		return float64(v.Int), true
	default:
		return 0, false
	}
}

// WithAttr returns a copy of v with attr appended to its attribute list.
// Attrs only ever carry F=0 X=33 codes; callers (the DDS interpreter) are
// responsible for that invariant.
func (v Var) WithAttr(attr Var) Var {
	v.Attrs = append(append([]Var(nil), v.Attrs...), attr)

	return v
}

// AttrByCode returns the first attribute on v whose code matches code, and
// whether one was found.
func (v Var) AttrByCode(code descr.Code) (Var, bool) {
	for _, a := range v.Attrs {
		if a.Code == code {
			return a, true
		}
	}

	return Var{}, false
}

// Subset is one data row: the ordered sequence of Vars produced by walking
// the bulletin's descriptor list once. During encode, the sequence order
// must match the linearized, expanded descriptor stream.
type Subset struct {
	Vars []Var
}

// NewSubset creates an empty Subset, optionally pre-sized for n data
// elements (attributes are not counted, since they live on their parent
// Var).
func NewSubset(n int) *Subset {
	return &Subset{Vars: make([]Var, 0, n)}
}

// Append adds v as the next data element of the subset.
func (s *Subset) Append(v Var) {
	s.Vars = append(s.Vars, v)
}

// Len returns the number of top-level (non-attribute) Vars in the subset.
func (s *Subset) Len() int {
	return len(s.Vars)
}

// At returns the Var at index i.
func (s *Subset) At(i int) Var {
	return s.Vars[i]
}
