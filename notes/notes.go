// Package notes renders the human-readable advisory text attached to an
// update rule.
//
// Rendering is a pure transform over the advisory, its decoded severity,
// and the ecosystem the advisory was looked up under; identical inputs
// always produce identical markdown.
package notes

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/remediate/vulnrules"
	"github.com/remediate/vulnrules/severity"
)

// source is the secondary database an ecosystem's advisories are drawn
// from, used for the attribution footer.
type source struct {
	Name    string
	License string
	URL     string
}

var ghsa = source{
	Name:    `GitHub Advisory Database`,
	License: `CC-BY 4.0`,
	URL:     `https://github.com/github/advisory-database`,
}

var sources = map[vulnrules.Ecosystem]source{
	vulnrules.CratesIO: {
		Name:    `RustSec Advisory Database`,
		License: `CC0 1.0`,
		URL:     `https://rustsec.org`,
	},
	vulnrules.Go: {
		Name:    `Go Vulnerability Database`,
		License: `CC-BY 4.0`,
		URL:     `https://pkg.go.dev/vuln`,
	},
	vulnrules.PyPI: {
		Name:    `PyPA Advisory Database`,
		License: `CC-BY 4.0`,
		URL:     `https://github.com/pypa/advisory-database`,
	},
	vulnrules.Debian: {
		Name:    `Debian Security Bug Tracker`,
		License: `MIT`,
		URL:     `https://security-tracker.debian.org/tracker`,
	},
	vulnrules.Alpine: {
		Name:    `Alpine secdb`,
		License: `MIT`,
		URL:     `https://secdb.alpinelinux.org`,
	},
	vulnrules.AlmaLinux: {
		Name:    `AlmaLinux Security Advisories`,
		License: `MIT`,
		URL:     `https://errata.almalinux.org`,
	},
	vulnrules.Maven:     ghsa,
	vulnrules.Npm:       ghsa,
	vulnrules.NuGet:     ghsa,
	vulnrules.Packagist: ghsa,
	vulnrules.RubyGems:  ghsa,
	vulnrules.Hex:       ghsa,
	vulnrules.Hackage:   ghsa,
}

// detailURL is the provenance-specific page for an advisory id.
func detailURL(id string) string {
	switch {
	case strings.HasPrefix(id, `GHSA-`):
		return `https://github.com/advisories/` + id
	case strings.HasPrefix(id, `GO-`):
		return `https://pkg.go.dev/vuln/` + id
	case strings.HasPrefix(id, `RUSTSEC-`):
		return `https://rustsec.org/advisories/` + id + `.html`
	case strings.HasPrefix(id, `DSA-`), strings.HasPrefix(id, `DLA-`):
		return `https://security-tracker.debian.org/tracker/` + id
	}
	return `https://osv.dev/vulnerability/` + id
}

func cveURL(id string) string {
	return `https://nvd.nist.gov/vuln/detail/` + id
}

// Render builds the markdown advisory note.
func Render(a *vulnrules.Advisory, sc severity.Score, ec vulnrules.Ecosystem) string {
	var b strings.Builder

	if a.Summary != "" {
		fmt.Fprintf(&b, "### %s\n", a.Summary)
		b.WriteString(referenceLine(a))
	} else {
		fmt.Fprintf(&b, "### [%s](%s)\n", a.ID, detailURL(a.ID))
	}
	b.WriteString("\n")

	if a.Details != "" {
		b.WriteString(a.Details)
		b.WriteString("\n")
	} else {
		b.WriteString("No details.\n")
	}
	b.WriteString("\n")

	if sc.Known {
		fmt.Fprintf(&b, "Score: %s / 10 (%s)\n", strconv.FormatFloat(sc.Value, 'f', -1, 64), sc.Label)
		fmt.Fprintf(&b, "Vector: `%s`\n", sc.Vector)
	} else {
		b.WriteString("Unknown severity.\n")
		if sc.Vector != "" {
			fmt.Fprintf(&b, "Vector: `%s`\n", sc.Vector)
		}
	}
	b.WriteString("\n")

	b.WriteString("#### References\n")
	var ct int
	for _, ref := range a.References {
		if ref.Type == vulnrules.ReferenceAdvisory || ref.URL == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s\n", ref.URL)
		ct++
	}
	if ct == 0 {
		b.WriteString("No references.\n")
	}
	b.WriteString("\n")

	src, ok := sources[ec]
	if !ok {
		src = ghsa
	}
	fmt.Fprintf(&b, "This data is provided by [OSV](https://osv.dev) and the [%s](%s) (%s).\n",
		src.Name, src.URL, src.License)
	return b.String()
}

// referenceLine links the advisory's identifiers: CVE aliases to the
// NVD, the advisory id to its provenance page, then remaining aliases as
// plain text, joined with " / ". Only rendered under a summary header;
// without one the id is already the header link.
func referenceLine(a *vulnrules.Advisory) string {
	parts := make([]string, 0, len(a.Aliases)+1)
	var rest []string
	for _, alias := range a.Aliases {
		if strings.HasPrefix(alias, `CVE-`) {
			parts = append(parts, fmt.Sprintf("[%s](%s)", alias, cveURL(alias)))
		} else {
			rest = append(rest, alias)
		}
	}
	parts = append(parts, fmt.Sprintf("[%s](%s)", a.ID, detailURL(a.ID)))
	parts = append(parts, rest...)
	return strings.Join(parts, " / ") + "\n"
}
