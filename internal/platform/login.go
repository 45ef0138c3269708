// ABOUTME: Stub LoginProvider for tests and local development.
// ABOUTME: Real deployments supply a browser-automation-backed implementation (out of scope).

package platform

import "context"

// StubLoginProvider returns a fixed credential string on every call. It
// exists so platform.Client and its callers can be exercised in tests
// without a real login subsystem.
type StubLoginProvider struct {
	Credentials Credentials
	Err         error
}

func (p *StubLoginProvider) Login(_ context.Context, _, _ string) (Credentials, error) {
	return p.Credentials, p.Err
}

func (p *StubLoginProvider) Refresh(_ context.Context, _ string) (Credentials, error) {
	return p.Credentials, p.Err
}

var _ LoginProvider = (*StubLoginProvider)(nil)
