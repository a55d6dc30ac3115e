package vulnrules

// UpdateRule pairs an affected dependency with a safe version constraint
// and the rendered advisory text. One rule is emitted per
// (advisory, affected entry) pair that contains the dependency's current
// version.
//
// AllowedVersions uses the ecosystem's constraint syntax: an exact pin
// ("==1.2.3") for PyPI fixes, a bare version for other fixes, and
// "> 1.2.3" when only a last-affected bound is known.
type UpdateRule struct {
	MatchDatasources     []string
	MatchPackageNames    []string
	MatchCurrentVersion  string
	AllowedVersions      string
	IsVulnerabilityAlert bool
	PRBodyNotes          []string
}
