// Package vulnrules resolves OSV-format advisories against a dependency
// inventory and emits update rules describing the minimal safe version
// change for each applicable vulnerability.
package vulnrules

import "time"

// See https://ossf.github.io/osv-schema/ for the advisory shapes.
//
// Only the fields consulted during resolution and rendering are modeled.
type (
	// Advisory is one OSV-format vulnerability record, as returned by the
	// feed. Treated as read-only.
	Advisory struct {
		ID         string      `json:"id"`
		Modified   time.Time   `json:"modified"`
		Aliases    []string    `json:"aliases,omitempty"`
		Summary    string      `json:"summary,omitempty"`
		Details    string      `json:"details,omitempty"`
		Severity   []Severity  `json:"severity,omitempty"`
		Affected   []Affected  `json:"affected"`
		References []Reference `json:"references,omitempty"`
	}

	// Severity is one severity entry of an advisory. Type names the CVSS
	// major version the Score vector is written in.
	Severity struct {
		Type  string `json:"type"`
		Score string `json:"score"`
	}

	// Affected is one (package, ranges|versions) block within an advisory.
	// An entry with neither Ranges nor Versions matches nothing.
	Affected struct {
		Package  Package  `json:"package"`
		Ranges   []Range  `json:"ranges,omitempty"`
		Versions []string `json:"versions,omitempty"`
	}

	// Package identifies the subject of an Affected entry in the feed's
	// ecosystem vocabulary.
	Package struct {
		Ecosystem string `json:"ecosystem"`
		Name      string `json:"name"`
		PURL      string `json:"purl,omitempty"`
	}

	// Range is a raw boundary-event list. Events are not guaranteed sorted
	// and may interleave multiple disjoint spans.
	Range struct {
		Type   string  `json:"type"`
		Repo   string  `json:"repo,omitempty"`
		Events []Event `json:"events"`
	}

	// Event is a single version boundary. Exactly one field is set.
	// An Introduced of "0" means "from the start of time".
	Event struct {
		Introduced   string `json:"introduced,omitempty"`
		Fixed        string `json:"fixed,omitempty"`
		LastAffected string `json:"last_affected,omitempty"`
		Limit        string `json:"limit,omitempty"`
	}

	// Reference is one external link attached to an advisory.
	Reference struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	}
)

// Range type vocabulary.
const (
	RangeSemVer    = `SEMVER`
	RangeEcosystem = `ECOSYSTEM`
	RangeGit       = `GIT`
)

// Severity type vocabulary.
const (
	SeverityCVSSV2 = `CVSS_V2`
	SeverityCVSSV3 = `CVSS_V3`
	SeverityCVSSV4 = `CVSS_V4`
)

// Reference type for links that point back at an advisory database entry.
const ReferenceAdvisory = `ADVISORY`
