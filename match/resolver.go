// Package match implements affected-range resolution: deciding whether an
// advisory's affected entry contains a dependency's current version and,
// when it does, what the minimal safe target is.
//
// Advisories carry version spans as unordered introduced/fixed/
// last_affected boundary events, possibly interleaving several disjoint
// spans in one range. Resolution reconstructs the ordered subranges
// before any membership test, so event order in the feed never changes
// the answer.
package match

import (
	"fmt"
	"sort"

	"github.com/remediate/vulnrules"
	"github.com/remediate/vulnrules/version"
)

// Outcome classifies an (advisory entry, current version) pair.
type Outcome uint

const (
	// NotApplicable means no subrange or listed version contains the
	// current version.
	NotApplicable Outcome = iota
	// Applicable means a subrange contains the current version and an
	// upper bound exists to derive a safe target from.
	Applicable
	// ApplicableNoFix means the current version is affected but no safe
	// target can be derived.
	ApplicableNoFix
)

// Bound is the upper-bound encoding of the matched subrange.
type Bound uint

const (
	// BoundNone means the matched subrange is unbounded above.
	BoundNone Bound = iota
	// BoundFixed is an exclusive upper bound from a "fixed" event.
	BoundFixed
	// BoundLastAffected is an inclusive upper bound from a
	// "last_affected" event.
	BoundLastAffected
)

// NoFixReason records why no safe target exists. The distinction is kept
// for diagnostics only; both reasons produce the same (absent) output.
type NoFixReason uint

const (
	ReasonNone NoFixReason = iota
	// ReasonVersionList: the entry matched through its explicit version
	// list, which carries no ordering to derive a target from.
	ReasonVersionList
	// ReasonUnbounded: the matched subrange has no upper bound.
	ReasonUnbounded
)

// Result is the outcome of resolving one affected entry.
type Result struct {
	Outcome Outcome
	// Version is the safe-target version when Outcome is Applicable:
	// the fixed version (upgrade to it) or the last-affected version
	// (upgrade past it), per Bound.
	Version string
	Bound   Bound
	Reason  NoFixReason
}

// Resolve tests one affected entry against a current version. The
// current version must already be known to parse under the ecosystem's
// scheme; an error return means an event version inside the entry did
// not, and the advisory should be skipped for this dependency.
//
// The first containing subrange of the first range (in entry order) that
// contains the current version determines the result. Ranges whose
// subranges do not contain the current version never influence the
// target, even when they carry a lower fixed version.
func Resolve(ec vulnrules.Ecosystem, current string, aff *vulnrules.Affected) (Result, error) {
	if len(aff.Ranges) == 0 && len(aff.Versions) == 0 {
		return Result{Outcome: NotApplicable}, nil
	}
	for i := range aff.Ranges {
		r := &aff.Ranges[i]
		switch r.Type {
		case vulnrules.RangeSemVer, vulnrules.RangeEcosystem:
		default:
			// GIT and unrecognized types carry no version ordering.
			continue
		}
		subs, err := subranges(ec, r.Events)
		if err != nil {
			return Result{}, err
		}
		for _, sr := range subs {
			ok, err := sr.contains(ec, current)
			if err != nil {
				return Result{}, err
			}
			if !ok {
				continue
			}
			switch sr.bound {
			case BoundFixed:
				return Result{Outcome: Applicable, Version: sr.upper, Bound: BoundFixed}, nil
			case BoundLastAffected:
				return Result{Outcome: Applicable, Version: sr.upper, Bound: BoundLastAffected}, nil
			}
			return Result{Outcome: ApplicableNoFix, Reason: ReasonUnbounded}, nil
		}
	}
	for _, v := range aff.Versions {
		if v == current {
			return Result{Outcome: ApplicableNoFix, Reason: ReasonVersionList}, nil
		}
		// Tolerate cosmetic differences ("v1.2.3" vs "1.2.3") when both
		// sides parse; list entries that don't parse simply don't match.
		if c, err := version.Compare(ec, current, v); err == nil && c == 0 {
			return Result{Outcome: ApplicableNoFix, Reason: ReasonVersionList}, nil
		}
	}
	return Result{Outcome: NotApplicable}, nil
}

type boundaryKind uint8

const (
	introduced boundaryKind = iota
	fixed
	lastAffected
)

type boundary struct {
	ver  string
	kind boundaryKind
	// min marks the introduced-"0" event, which sorts before every
	// version and means "no lower bound".
	min bool
}

// subrange is one derived interval: lower is inclusive ("" means
// unbounded below), the upper bound's semantics depend on bound.
type subrange struct {
	lower string
	upper string
	bound Bound
}

func (sr *subrange) contains(ec vulnrules.Ecosystem, v string) (bool, error) {
	if sr.lower != "" {
		c, err := version.Compare(ec, v, sr.lower)
		if err != nil {
			return false, err
		}
		if c < 0 {
			return false, nil
		}
	}
	switch sr.bound {
	case BoundFixed:
		c, err := version.Compare(ec, v, sr.upper)
		if err != nil {
			return false, err
		}
		return c < 0, nil
	case BoundLastAffected:
		c, err := version.Compare(ec, v, sr.upper)
		if err != nil {
			return false, err
		}
		return c <= 0, nil
	}
	return true, nil
}

// subranges reconstructs the ordered subranges encoded by an event list.
//
// Events are sorted by version ascending (introduced first on ties),
// then each introduced is paired with the next boundary event; an
// introduced with no following boundary is unbounded above. Events
// carrying only a limit are ignored.
func subranges(ec vulnrules.Ecosystem, events []vulnrules.Event) ([]subrange, error) {
	bs := make([]boundary, 0, len(events))
	for i := range events {
		ev := &events[i]
		var b boundary
		switch {
		case ev.Introduced == "0":
			b = boundary{kind: introduced, min: true}
		case ev.Introduced != "":
			b = boundary{ver: ev.Introduced, kind: introduced}
		case ev.Fixed != "":
			b = boundary{ver: ev.Fixed, kind: fixed}
		case ev.LastAffected != "":
			b = boundary{ver: ev.LastAffected, kind: lastAffected}
		default:
			continue
		}
		if !b.min {
			if err := version.Validate(ec, b.ver); err != nil {
				return nil, fmt.Errorf("match: event version: %w", err)
			}
		}
		bs = append(bs, b)
	}
	sort.SliceStable(bs, func(i, j int) bool {
		a, b := &bs[i], &bs[j]
		switch {
		case a.min && b.min:
			return false
		case a.min:
			return true
		case b.min:
			return false
		}
		c, _ := version.Compare(ec, a.ver, b.ver) // operands validated above
		if c != 0 {
			return c < 0
		}
		return a.kind == introduced && b.kind != introduced
	})

	// Each boundary closes the earliest still-open span. With the
	// introduced-first tie-break this keeps adjacent spans that meet at
	// one version (fixed at v, reintroduced at v) distinct instead of
	// collapsing them into an empty interval.
	var subs []subrange
	var open []boundary
	for _, b := range bs {
		if b.kind == introduced {
			open = append(open, b)
			continue
		}
		if len(open) == 0 {
			// Nothing to close; the schema requires an introduced event
			// per span, so a leading boundary is dropped.
			continue
		}
		o := open[0]
		open = open[1:]
		bound := BoundFixed
		if b.kind == lastAffected {
			bound = BoundLastAffected
		}
		subs = append(subs, subrange{lower: o.ver, upper: b.ver, bound: bound})
	}
	for _, o := range open {
		subs = append(subs, subrange{lower: o.ver, bound: BoundNone})
	}
	return subs, nil
}
