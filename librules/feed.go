package librules

import (
	"context"

	"github.com/remediate/vulnrules"
)

// Querier is the vulnerability feed consumed by the resolution pass.
//
// Implementations are queried once per (ecosystem, package name) key and
// must be safe for concurrent use. A returned error is fatal to the
// whole pass.
type Querier interface {
	QueryVulnerabilities(ctx context.Context, ecosystem vulnrules.Ecosystem, name string) ([]vulnrules.Advisory, error)
}

// QuerierFunc adapts a function to the Querier interface.
type QuerierFunc func(ctx context.Context, ecosystem vulnrules.Ecosystem, name string) ([]vulnrules.Advisory, error)

// QueryVulnerabilities implements Querier.
func (f QuerierFunc) QueryVulnerabilities(ctx context.Context, ecosystem vulnrules.Ecosystem, name string) ([]vulnrules.Advisory, error) {
	return f(ctx, ecosystem, name)
}
