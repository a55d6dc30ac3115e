// Package librules assembles update rules from a dependency inventory
// and a vulnerability feed.
//
// The pass is a single logical sweep: dependencies are grouped by
// datasource, datasources are mapped into the feed's ecosystem
// vocabulary, the feed is queried once per (ecosystem, package name)
// key, and each returned advisory is resolved against the dependency's
// current version. Feed queries fan out concurrently; rule assembly is
// ordered by the inventory, so output is deterministic.
package librules

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/quay/zlog"
	"golang.org/x/sync/errgroup"

	"github.com/remediate/vulnrules"
	"github.com/remediate/vulnrules/match"
	"github.com/remediate/vulnrules/notes"
	"github.com/remediate/vulnrules/severity"
	"github.com/remediate/vulnrules/version"
)

// Lib resolves dependency inventories into update rules.
type Lib struct {
	feed Querier
	max  int
}

// Options configures a Lib.
type Options struct {
	// Feed is the vulnerability feed to query. Required.
	Feed Querier
	// MaxConcurrent caps in-flight feed queries. Defaults to
	// GOMAXPROCS.
	MaxConcurrent int
}

// New constructs a Lib.
func New(opts *Options) (*Lib, error) {
	if opts == nil || opts.Feed == nil {
		return nil, errors.New("librules: no feed provided")
	}
	max := opts.MaxConcurrent
	if max < 1 {
		max = runtime.GOMAXPROCS(0)
	}
	return &Lib{feed: opts.Feed, max: max}, nil
}

type queryKey struct {
	ec   vulnrules.Ecosystem
	name string
}

// Resolve runs one resolution pass over the inventory.
//
// The returned rules preserve inventory order, and advisory order within
// each dependency. A feed error fails the whole pass; per-dependency
// problems (unmappable datasource, unparseable current version,
// unparseable advisory event versions) are logged and skipped. On a nil
// error the rule list is complete: a dependency's rules are either all
// present or, when it was skipped, all absent.
func (l *Lib) Resolve(ctx context.Context, deps []vulnrules.Dependency) ([]vulnrules.UpdateRule, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "librules/Lib.Resolve")

	// Decide the ecosystem once per datasource so the diagnostic is
	// logged once, not once per dependency.
	ecoFor := make(map[string]vulnrules.Ecosystem)
	for i := range deps {
		ds := deps[i].Datasource
		if _, ok := ecoFor[ds]; ok {
			continue
		}
		ec, ok := vulnrules.FromDatasource(ds)
		if !ok {
			zlog.Debug(ctx).
				Str("datasource", ds).
				Msg("no feed ecosystem for datasource, skipping its dependencies")
		}
		ecoFor[ds] = ec // zero value marks "unmapped"
	}

	include := make([]bool, len(deps))
	keys := make(map[queryKey]struct{})
	for i := range deps {
		d := &deps[i]
		ec := ecoFor[d.Datasource]
		if ec == "" {
			skipCounter.WithLabelValues("datasource").Inc()
			continue
		}
		if d.CurrentValue == "" {
			zlog.Debug(ctx).
				Str("package", d.Name).
				Str("datasource", d.Datasource).
				Msg("dependency has no current version, skipping")
			skipCounter.WithLabelValues("no_version").Inc()
			continue
		}
		if err := version.Validate(ec, d.CurrentValue); err != nil {
			zlog.Debug(ctx).
				Err(err).
				Str("package", d.Name).
				Str("version", d.CurrentValue).
				Msg("unparseable current version, skipping dependency")
			skipCounter.WithLabelValues("version").Inc()
			continue
		}
		include[i] = true
		keys[queryKey{ec, d.Name}] = struct{}{}
	}

	advisories, err := l.query(ctx, keys)
	if err != nil {
		return nil, err
	}

	var out []vulnrules.UpdateRule
	for i := range deps {
		if !include[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d := &deps[i]
		ec := ecoFor[d.Datasource]
		out = append(out, l.depRules(ctx, d, ec, advisories[queryKey{ec, d.Name}])...)
	}
	return out, nil
}

// query fans out feed lookups for every unique key. Lookups are
// independent, so ordering between them doesn't matter; results land in
// a map keyed the same way rule assembly reads it.
func (l *Lib) query(ctx context.Context, keys map[queryKey]struct{}) (map[queryKey][]vulnrules.Advisory, error) {
	out := make(map[queryKey][]vulnrules.Advisory, len(keys))
	var mu sync.Mutex
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(l.max)
	for k := range keys {
		eg.Go(func() error {
			feedQueryCounter.WithLabelValues(string(k.ec)).Inc()
			as, err := l.feed.QueryVulnerabilities(ctx, k.ec, k.name)
			if err != nil {
				return fmt.Errorf("librules: feed query %s/%s: %w", k.ec, k.name, err)
			}
			mu.Lock()
			out[k] = as
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// depRules resolves every advisory returned for one dependency,
// preserving advisory order. One rule per applicable (advisory, entry)
// pair; advisories whose event versions don't compare are skipped with a
// diagnostic and don't affect the rest.
func (l *Lib) depRules(ctx context.Context, dep *vulnrules.Dependency, ec vulnrules.Ecosystem, advisories []vulnrules.Advisory) []vulnrules.UpdateRule {
	ctx = zlog.ContextWithValues(ctx,
		"package", dep.Name,
		"datasource", dep.Datasource)
	var rules []vulnrules.UpdateRule
	for i := range advisories {
		a := &advisories[i]
		ctx := zlog.ContextWithValues(ctx, "advisory", a.ID)
		for j := range a.Affected {
			aff := &a.Affected[j]
			if !matchesPackage(aff, ec, dep.Name) {
				continue
			}
			res, err := match.Resolve(ec, dep.CurrentValue, aff)
			if err != nil {
				zlog.Debug(ctx).
					Err(err).
					Str("version", dep.CurrentValue).
					Msg("version comparison failed, skipping advisory for this dependency")
				break
			}
			switch res.Outcome {
			case match.Applicable:
				rules = append(rules, l.rule(ctx, dep, ec, a, res))
				ruleCounter.Inc()
			case match.ApplicableNoFix:
				reason := "unbounded range"
				if res.Reason == match.ReasonVersionList {
					reason = "affected version list"
				}
				zlog.Info(ctx).
					Str("version", dep.CurrentValue).
					Str("reason", reason).
					Msg("no fixed version available for this advisory")
			}
		}
	}
	return rules
}

func (l *Lib) rule(ctx context.Context, dep *vulnrules.Dependency, ec vulnrules.Ecosystem, a *vulnrules.Advisory, res match.Result) vulnrules.UpdateRule {
	sc := severity.Score{Label: severity.Unknown}
	if s, ok := severity.Select(a.Severity); ok {
		var err error
		sc, err = severity.Parse(s.Type, s.Score)
		if err != nil {
			zlog.Debug(ctx).
				Err(err).
				Str("vector", s.Score).
				Msg("unable to parse severity vector")
		}
	}
	return vulnrules.UpdateRule{
		MatchDatasources:     []string{dep.Datasource},
		MatchPackageNames:    []string{dep.Name},
		MatchCurrentVersion:  dep.CurrentValue,
		AllowedVersions:      allowedVersions(ec, res),
		IsVulnerabilityAlert: true,
		PRBodyNotes:          []string{"\n\n" + notes.Render(a, sc, ec)},
	}
}

// allowedVersions formats the safe-version expression. A fixed bound is
// the version itself (an exact pin for PyPI); a last-affected bound can
// only say "anything above".
func allowedVersions(ec vulnrules.Ecosystem, res match.Result) string {
	if res.Bound == match.BoundLastAffected {
		return "> " + res.Version
	}
	if ec == vulnrules.PyPI {
		return "==" + res.Version
	}
	return res.Version
}
