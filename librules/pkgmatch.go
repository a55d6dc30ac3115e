package librules

import (
	"strings"

	"github.com/package-url/packageurl-go"

	"github.com/remediate/vulnrules"
)

// matchesPackage reports whether an affected entry names the dependency.
// The entry's ecosystem must agree with the lookup ecosystem (release
// qualifiers like "Alpine:v3.17" are disregarded). When the entry omits
// a name but carries a purl, the purl is used instead.
func matchesPackage(aff *vulnrules.Affected, ec vulnrules.Ecosystem, name string) bool {
	if vulnrules.Base(aff.Package.Ecosystem) != string(ec) {
		return false
	}
	n := aff.Package.Name
	if n == "" && aff.Package.PURL != "" {
		purl, err := packageurl.FromString(aff.Package.PURL)
		if err != nil {
			return false
		}
		n = purlName(ec, &purl)
	}
	return normalizeName(ec, n) == normalizeName(ec, name)
}

// purlName rebuilds the ecosystem-native package name from purl
// components: Maven names are "group:artifact", scoped/namespaced names
// elsewhere join with "/".
func purlName(ec vulnrules.Ecosystem, purl *packageurl.PackageURL) string {
	if purl.Namespace == "" {
		return purl.Name
	}
	if ec == vulnrules.Maven {
		return purl.Namespace + ":" + purl.Name
	}
	return purl.Namespace + "/" + purl.Name
}

var pypiNormalizer = strings.NewReplacer("_", "-", ".", "-")

// normalizeName folds a package name for comparison. PyPI names compare
// case-insensitively with "_" and "." equivalent to "-" (PEP 503);
// every other ecosystem compares exact.
func normalizeName(ec vulnrules.Ecosystem, name string) string {
	if ec == vulnrules.PyPI {
		return pypiNormalizer.Replace(strings.ToLower(name))
	}
	return name
}
