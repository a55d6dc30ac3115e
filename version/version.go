// Package version implements ordering and validation of version strings
// for the ecosystems the resolver understands.
//
// Each ecosystem's scheme is delegated to the library implementing it;
// anything without a dedicated scheme is interpreted as a (lenient)
// semantic version.
package version

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver"
	pep440 "github.com/aquasecurity/go-pep440-version"
	apk "github.com/knqyf263/go-apk-version"
	deb "github.com/knqyf263/go-deb-version"
	rpm "github.com/knqyf263/go-rpm-version"

	"github.com/remediate/vulnrules"
)

// ErrInvalid is reported when a version string can't be interpreted under
// the ecosystem's scheme. Use errors.Is to test for it.
var ErrInvalid = errors.New("invalid version")

// Compare orders two version strings under the named ecosystem's scheme,
// returning -1, 0, or 1. An unparseable operand reports ErrInvalid in
// the error chain.
func Compare(ec vulnrules.Ecosystem, a, b string) (int, error) {
	switch ec {
	case vulnrules.PyPI:
		va, err := parsePEP440(a)
		if err != nil {
			return 0, err
		}
		vb, err := parsePEP440(b)
		if err != nil {
			return 0, err
		}
		switch {
		case va.LessThan(vb):
			return -1, nil
		case vb.LessThan(va):
			return 1, nil
		}
		return 0, nil
	case vulnrules.Debian:
		va, err := parseDeb(a)
		if err != nil {
			return 0, err
		}
		vb, err := parseDeb(b)
		if err != nil {
			return 0, err
		}
		switch {
		case va.LessThan(vb):
			return -1, nil
		case vb.LessThan(va):
			return 1, nil
		}
		return 0, nil
	case vulnrules.Alpine:
		va, err := parseAPK(a)
		if err != nil {
			return 0, err
		}
		vb, err := parseAPK(b)
		if err != nil {
			return 0, err
		}
		switch {
		case va.LessThan(vb):
			return -1, nil
		case vb.LessThan(va):
			return 1, nil
		}
		return 0, nil
	case vulnrules.AlmaLinux:
		// The rpm scheme accepts any string.
		return rpm.NewVersion(a).Compare(rpm.NewVersion(b)), nil
	}
	va, err := parseSemver(a)
	if err != nil {
		return 0, err
	}
	vb, err := parseSemver(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// Validate reports whether the version string parses under the named
// ecosystem's scheme.
func Validate(ec vulnrules.Ecosystem, v string) error {
	var err error
	switch ec {
	case vulnrules.PyPI:
		_, err = parsePEP440(v)
	case vulnrules.Debian:
		_, err = parseDeb(v)
	case vulnrules.Alpine:
		_, err = parseAPK(v)
	case vulnrules.AlmaLinux:
		// Never fails.
	default:
		_, err = parseSemver(v)
	}
	return err
}

func parseSemver(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalid, s, err)
	}
	return v, nil
}

// parsePEP440 also accepts the pip exact-pin form, e.g. "==1.2.3".
func parsePEP440(s string) (pep440.Version, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "=="))
	v, err := pep440.Parse(s)
	if err != nil {
		return pep440.Version{}, fmt.Errorf("%w %q: %v", ErrInvalid, s, err)
	}
	return v, nil
}

func parseDeb(s string) (deb.Version, error) {
	v, err := deb.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return deb.Version{}, fmt.Errorf("%w %q: %v", ErrInvalid, s, err)
	}
	return v, nil
}

func parseAPK(s string) (apk.Version, error) {
	v, err := apk.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalid, s, err)
	}
	return v, nil
}
