package vulnrules

import "strings"

// Ecosystem is the feed's package-namespace vocabulary. It is distinct
// from the consumer's datasource identifiers; see FromDatasource.
type Ecosystem string

// Ecosystems with a datasource mapping.
const (
	CratesIO  Ecosystem = `crates.io`
	Go        Ecosystem = `Go`
	Hackage   Ecosystem = `Hackage`
	Hex       Ecosystem = `Hex`
	Maven     Ecosystem = `Maven`
	Npm       Ecosystem = `npm`
	NuGet     Ecosystem = `NuGet`
	Packagist Ecosystem = `Packagist`
	PyPI      Ecosystem = `PyPI`
	RubyGems  Ecosystem = `RubyGems`
	Debian    Ecosystem = `Debian`
	Alpine    Ecosystem = `Alpine`
	AlmaLinux Ecosystem = `AlmaLinux`
)

var datasourceEcosystem = map[string]Ecosystem{
	"crate":     CratesIO,
	"go":        Go,
	"hackage":   Hackage,
	"hex":       Hex,
	"maven":     Maven,
	"npm":       Npm,
	"nuget":     NuGet,
	"packagist": Packagist,
	"pypi":      PyPI,
	"rubygems":  RubyGems,
	"deb":       Debian,
	"apk":       Alpine,
	"rpm":       AlmaLinux,
}

// FromDatasource reports the feed ecosystem for a datasource identifier.
// The second return is false when the datasource has no mapping; callers
// are expected to skip every dependency declared under it.
func FromDatasource(ds string) (Ecosystem, bool) {
	e, ok := datasourceEcosystem[ds]
	return e, ok
}

// Base strips any release qualifier from a feed-reported ecosystem
// string, e.g. "Alpine:v3.17" reports as "Alpine".
func Base(ecosystem string) string {
	if idx := strings.Index(ecosystem, ":"); idx != -1 {
		return ecosystem[:idx]
	}
	return ecosystem
}
