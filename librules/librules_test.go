package librules

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/quay/zlog"

	"github.com/remediate/vulnrules"
)

func lodashAdvisory() vulnrules.Advisory {
	return vulnrules.Advisory{
		ID:      "GHSA-jf85-cpcp-j695",
		Aliases: []string{"CVE-2019-10744"},
		Summary: "Prototype Pollution in lodash",
		Severity: []vulnrules.Severity{
			{Type: vulnrules.SeverityCVSSV3, Score: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:N"},
		},
		Affected: []vulnrules.Affected{
			{
				Package: vulnrules.Package{Ecosystem: "npm", Name: "lodash"},
				Ranges: []vulnrules.Range{
					{
						Type: vulnrules.RangeSemVer,
						Events: []vulnrules.Event{
							{Introduced: "0"},
							{Fixed: "4.17.12"},
						},
					},
				},
			},
		},
	}
}

func static(advisories map[string][]vulnrules.Advisory, calls *atomic.Int64) Querier {
	return QuerierFunc(func(_ context.Context, ec vulnrules.Ecosystem, name string) ([]vulnrules.Advisory, error) {
		if calls != nil {
			calls.Add(1)
		}
		return advisories[string(ec)+"/"+name], nil
	})
}

func mustNew(t *testing.T, q Querier) *Lib {
	t.Helper()
	l, err := New(&Options{Feed: q})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestResolveEmitsRule(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	l := mustNew(t, static(map[string][]vulnrules.Advisory{
		"npm/lodash": {lodashAdvisory()},
	}, nil))

	got, err := l.Resolve(ctx, []vulnrules.Dependency{
		{Name: "lodash", CurrentValue: "4.17.10", Datasource: "npm"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rules, want 1", len(got))
	}
	r := got[0]
	want := vulnrules.UpdateRule{
		MatchDatasources:     []string{"npm"},
		MatchPackageNames:    []string{"lodash"},
		MatchCurrentVersion:  "4.17.10",
		AllowedVersions:      "4.17.12",
		IsVulnerabilityAlert: true,
		PRBodyNotes:          r.PRBodyNotes, // compared separately below
	}
	if !cmp.Equal(want, r) {
		t.Error(cmp.Diff(want, r))
	}
	if len(r.PRBodyNotes) != 1 {
		t.Fatalf("got %d note blocks, want 1", len(r.PRBodyNotes))
	}
	note := r.PRBodyNotes[0]
	if !strings.HasPrefix(note, "\n\n") {
		t.Error("note not prefixed with two newlines")
	}
	if !strings.Contains(note, "Prototype Pollution in lodash") {
		t.Error("note missing advisory summary")
	}
	if !strings.Contains(note, "Score: 9.1 / 10 (Critical)") {
		t.Error("note missing severity line")
	}
}

func TestFixedBoundaryNotVulnerable(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	l := mustNew(t, static(map[string][]vulnrules.Advisory{
		"npm/lodash": {lodashAdvisory()},
	}, nil))

	got, err := l.Resolve(ctx, []vulnrules.Dependency{
		{Name: "lodash", CurrentValue: "4.17.12", Datasource: "npm"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d rules, want 0", len(got))
	}
}

func TestPyPIExactPin(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	adv := vulnrules.Advisory{
		ID: "PYSEC-2021-98",
		Affected: []vulnrules.Affected{
			{
				Package: vulnrules.Package{Ecosystem: "PyPI", Name: "Django"},
				Ranges: []vulnrules.Range{
					{
						Type: vulnrules.RangeEcosystem,
						Events: []vulnrules.Event{
							{Introduced: "3.2"},
							{Fixed: "3.2.1"},
						},
					},
				},
			},
		},
	}
	l := mustNew(t, static(map[string][]vulnrules.Advisory{
		"PyPI/django": {adv},
	}, nil))

	got, err := l.Resolve(ctx, []vulnrules.Dependency{
		{Name: "django", CurrentValue: "==3.2.0", Datasource: "pypi"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rules, want 1", len(got))
	}
	if got[0].AllowedVersions != "==3.2.1" {
		t.Errorf("AllowedVersions = %q, want %q", got[0].AllowedVersions, "==3.2.1")
	}
}

func TestLastAffectedTarget(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	adv := vulnrules.Advisory{
		ID: "GHSA-0000-0000-0001",
		Affected: []vulnrules.Affected{
			{
				Package: vulnrules.Package{Ecosystem: "npm", Name: "left-pad"},
				Ranges: []vulnrules.Range{
					{
						Type: vulnrules.RangeSemVer,
						Events: []vulnrules.Event{
							{Introduced: "0"},
							{LastAffected: "0.2.0"},
						},
					},
					{
						Type: vulnrules.RangeSemVer,
						Events: []vulnrules.Event{
							{Introduced: "0.4.0"},
							{LastAffected: "0.8.0"},
						},
					},
				},
			},
		},
	}
	l := mustNew(t, static(map[string][]vulnrules.Advisory{
		"npm/left-pad": {adv},
	}, nil))

	got, err := l.Resolve(ctx, []vulnrules.Dependency{
		{Name: "left-pad", CurrentValue: "0.5.0", Datasource: "npm"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rules, want 1", len(got))
	}
	if got[0].AllowedVersions != "> 0.8.0" {
		t.Errorf("AllowedVersions = %q, want %q", got[0].AllowedVersions, "> 0.8.0")
	}
}

func TestUnmappedDatasource(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	var calls atomic.Int64
	l := mustNew(t, static(nil, &calls))

	got, err := l.Resolve(ctx, []vulnrules.Dependency{
		{Name: "alpine", CurrentValue: "3.17", Datasource: "docker"},
		{Name: "postgres", CurrentValue: "15.1", Datasource: "docker"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d rules, want 0", len(got))
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("feed queried %d times, want 0", n)
	}
}

func TestUnparseableCurrentVersion(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	var calls atomic.Int64
	l := mustNew(t, static(map[string][]vulnrules.Advisory{
		"npm/lodash": {lodashAdvisory()},
	}, &calls))

	got, err := l.Resolve(ctx, []vulnrules.Dependency{
		{Name: "lodash", CurrentValue: "latest", Datasource: "npm"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d rules, want 0", len(got))
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("feed queried %d times for a skipped dependency, want 0", n)
	}
}

func TestFeedErrorFatal(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	sentinel := errors.New("feed down")
	l := mustNew(t, QuerierFunc(func(context.Context, vulnrules.Ecosystem, string) ([]vulnrules.Advisory, error) {
		return nil, sentinel
	}))

	got, err := l.Resolve(ctx, []vulnrules.Dependency{
		{Name: "lodash", CurrentValue: "4.17.10", Datasource: "npm"},
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("got %v, want the feed error in the chain", err)
	}
	if got != nil {
		t.Error("got a partial rule list alongside a fatal error")
	}
}

func TestQueryOncePerKey(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	var calls atomic.Int64
	l := mustNew(t, static(map[string][]vulnrules.Advisory{
		"npm/lodash": {lodashAdvisory()},
	}, &calls))

	got, err := l.Resolve(ctx, []vulnrules.Dependency{
		{Name: "lodash", CurrentValue: "4.17.10", Datasource: "npm"},
		{Name: "lodash", CurrentValue: "4.17.11", Datasource: "npm"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("feed queried %d times, want 1", n)
	}
	// Both dependencies still resolve from the shared result.
	if len(got) != 2 {
		t.Errorf("got %d rules, want 2", len(got))
	}
}

func TestOrderPreserved(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	second := lodashAdvisory()
	second.ID = "GHSA-p6mc-m468-83gw"
	second.Summary = "Prototype Pollution in lodash (set)"
	third := vulnrules.Advisory{
		ID: "GHSA-0000-0000-0002",
		Affected: []vulnrules.Affected{
			{
				Package: vulnrules.Package{Ecosystem: "npm", Name: "minimist"},
				Ranges: []vulnrules.Range{
					{
						Type:   vulnrules.RangeSemVer,
						Events: []vulnrules.Event{{Introduced: "0"}, {Fixed: "1.2.6"}},
					},
				},
			},
		},
	}
	l := mustNew(t, static(map[string][]vulnrules.Advisory{
		"npm/lodash":   {lodashAdvisory(), second},
		"npm/minimist": {third},
	}, nil))

	got, err := l.Resolve(ctx, []vulnrules.Dependency{
		{Name: "lodash", CurrentValue: "4.17.10", Datasource: "npm"},
		{Name: "minimist", CurrentValue: "1.2.5", Datasource: "npm"},
	})
	if err != nil {
		t.Fatal(err)
	}
	var order []string
	for _, r := range got {
		order = append(order, r.MatchPackageNames[0])
	}
	want := []string{"lodash", "lodash", "minimist"}
	if !cmp.Equal(want, order) {
		t.Error(cmp.Diff(want, order))
	}
}

func TestNoFixEmitsNoRule(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	adv := vulnrules.Advisory{
		ID: "GHSA-0000-0000-0003",
		Affected: []vulnrules.Affected{
			{
				Package:  vulnrules.Package{Ecosystem: "npm", Name: "event-stream"},
				Versions: []string{"3.3.6"},
			},
		},
	}
	l := mustNew(t, static(map[string][]vulnrules.Advisory{
		"npm/event-stream": {adv},
	}, nil))

	got, err := l.Resolve(ctx, []vulnrules.Dependency{
		{Name: "event-stream", CurrentValue: "3.3.6", Datasource: "npm"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d rules, want 0", len(got))
	}
}

func TestBadEventVersionSkipsAdvisoryOnly(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	bad := vulnrules.Advisory{
		ID: "GHSA-0000-0000-0004",
		Affected: []vulnrules.Affected{
			{
				Package: vulnrules.Package{Ecosystem: "npm", Name: "lodash"},
				Ranges: []vulnrules.Range{
					{
						Type:   vulnrules.RangeSemVer,
						Events: []vulnrules.Event{{Introduced: "0"}, {Fixed: "not a version"}},
					},
				},
			},
		},
	}
	l := mustNew(t, static(map[string][]vulnrules.Advisory{
		"npm/lodash": {bad, lodashAdvisory()},
	}, nil))

	got, err := l.Resolve(ctx, []vulnrules.Dependency{
		{Name: "lodash", CurrentValue: "4.17.10", Datasource: "npm"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rules, want 1 from the well-formed advisory", len(got))
	}
	if got[0].AllowedVersions != "4.17.12" {
		t.Errorf("AllowedVersions = %q, want %q", got[0].AllowedVersions, "4.17.12")
	}
}

func TestCancellation(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	ctx, cancel := context.WithCancel(ctx)
	cancel()
	l := mustNew(t, static(map[string][]vulnrules.Advisory{
		"npm/lodash": {lodashAdvisory()},
	}, nil))

	_, err := l.Resolve(ctx, []vulnrules.Dependency{
		{Name: "lodash", CurrentValue: "4.17.10", Datasource: "npm"},
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestNewRequiresFeed(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected an error for nil options")
	}
	if _, err := New(&Options{}); err == nil {
		t.Error("expected an error for a nil feed")
	}
}
