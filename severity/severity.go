// Package severity decodes CVSS vector strings into a numeric score and
// qualitative label.
//
// Decoding is tolerant: any input yields a usable Score, with parse
// failures reported alongside an "Unknown" result rather than escaping.
package severity

import (
	"fmt"

	"github.com/quay/claircore/toolkit/types/cvss"

	"github.com/remediate/vulnrules"
)

// Label is the qualitative severity rating.
type Label string

// Ratings follow the standard CVSS score bands.
const (
	None     Label = `None`
	Low      Label = `Low`
	Medium   Label = `Medium`
	High     Label = `High`
	Critical Label = `Critical`
	Unknown  Label = `Unknown`
)

// Score is the decoded result for one severity entry. Known reports
// whether Value holds a real score; Vector always preserves the raw
// input for rendering.
type Score struct {
	Value  float64
	Known  bool
	Label  Label
	Vector string
}

// Parse decodes a CVSS vector of the named type (CVSS_V2, CVSS_V3,
// CVSS_V4). An empty or unrecognized type is guessed from the vector
// itself. On failure the returned Score is usable (label Unknown, raw
// vector preserved) and the error describes the parse problem.
func Parse(typ, vector string) (Score, error) {
	s := Score{Label: Unknown, Vector: vector}
	if vector == "" {
		return s, fmt.Errorf("severity: empty vector")
	}
	major := 0
	switch typ {
	case vulnrules.SeverityCVSSV2:
		major = 2
	case vulnrules.SeverityCVSSV3:
		major = 3
	case vulnrules.SeverityCVSSV4:
		major = 4
	default:
		major = cvss.Version(vector)
	}
	var (
		f   float64
		err error
	)
	switch major {
	case 2:
		var v cvss.V2
		if v, err = cvss.ParseV2(vector); err == nil {
			f = v.Score()
		}
	case 3:
		var v cvss.V3
		if v, err = cvss.ParseV3(vector); err == nil {
			f = v.Score()
		}
	case 4:
		var v cvss.V4
		if v, err = cvss.ParseV4(vector); err == nil {
			f = v.Score()
		}
	default:
		err = fmt.Errorf("unrecognized CVSS version in %q", typ)
	}
	if err != nil {
		return s, fmt.Errorf("severity: %q: %w", vector, err)
	}
	s.Value = f
	s.Known = true
	s.Label = band(f)
	return s, nil
}

// Select picks the preferred severity entry from an advisory, favoring
// the highest CVSS major version present. The second return is false
// when no entry is recognizably CVSS.
func Select(sevs []vulnrules.Severity) (vulnrules.Severity, bool) {
	var (
		best  vulnrules.Severity
		major int
	)
	for _, s := range sevs {
		var m int
		switch s.Type {
		case vulnrules.SeverityCVSSV2:
			m = 2
		case vulnrules.SeverityCVSSV3:
			m = 3
		case vulnrules.SeverityCVSSV4:
			m = 4
		default:
			continue
		}
		if m > major {
			best, major = s, m
		}
	}
	return best, major != 0
}

func band(f float64) Label {
	switch {
	case f <= 0:
		return None
	case f < 4.0:
		return Low
	case f < 7.0:
		return Medium
	case f < 9.0:
		return High
	case f <= 10.0:
		return Critical
	}
	return Unknown
}
