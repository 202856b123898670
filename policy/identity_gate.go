// policy/identity_gate.go
package policy

import "context"

// IdentityGate derives the hashed rate-limit/audit identity from the client
// address. It never rejects; an unknown address simply leaves IPHash empty,
// which disables rate limiting for the request.
type IdentityGate struct {
	salt string
}

func NewIdentityGate(salt string) *IdentityGate {
	return &IdentityGate{salt: salt}
}

func (g *IdentityGate) Name() string { return "identity" }

func (g *IdentityGate) Check(_ context.Context, sub *Submission) *Result {
	if sub.RemoteIP != "" && sub.RemoteIP != UnknownIP {
		sub.IPHash = HashIP(sub.RemoteIP, g.salt)
	}
	return Accept()
}
