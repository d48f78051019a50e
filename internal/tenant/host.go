package tenant

import (
	"net"
	"strings"
)

// HostKind classifies what a Host header maps to.
type HostKind int

const (
	// HostNone means the host carries no workspace label (the apex
	// domain, localhost, any bare two-label host). The marketing/root
	// surface is served.
	HostNone HostKind = iota

	// HostReserved names an infrastructure subdomain that never maps
	// to a customer workspace.
	HostReserved

	// HostRedirect means the caller should issue a permanent redirect
	// to the same path on the apex domain.
	HostRedirect

	// HostCandidate carries a workspace short name to resolve.
	HostCandidate
)

// HostInfo is the classification of a single Host header value.
type HostInfo struct {
	Kind HostKind

	// Name is the leading label for reserved, redirect, and candidate
	// hosts; empty for HostNone.
	Name string
}

// HostConfig carries the domains ParseHost classifies against.
type HostConfig struct {
	// BaseDomain is the production apex, e.g. "tryequipped.com".
	BaseDomain string

	// PreviewSuffix is an optional multi-label deployment base,
	// e.g. "preview.tryequipped.dev". The suffix itself serves the
	// root context; labels in front of it name a workspace.
	PreviewSuffix string
}

var reservedSubdomains = map[string]bool{
	"www":      true,
	"admin":    true,
	"api":      true,
	"app":      true,
	"billing":  true,
	"cdn":      true,
	"help":     true,
	"shop":     true,
	"store":    true,
	"support":  true,
	"webhooks": true,
}

// redirectSubdomains is the subset of reserved names that 301 to the
// apex instead of being served. Checked before the reserved set.
var redirectSubdomains = map[string]bool{
	"www": true,
}

// IsReservedSubdomain reports whether name can never be a workspace
// short name. Account provisioning checks this so a new slug cannot
// shadow infrastructure hosts.
func IsReservedSubdomain(name string) bool {
	return reservedSubdomains[strings.ToLower(strings.TrimSpace(name))]
}

// ParseHost classifies a raw Host header value. Pure: the same input
// always yields the same classification.
//
// The port suffix is stripped and the host lowercased. The apex domain,
// the preview suffix itself, and any host with two or fewer labels
// carry no workspace. Every other host treats its first label as the
// workspace candidate, which keeps arbitrary custom domains usable in
// test environments.
func ParseHost(host string, cfg HostConfig) HostInfo {
	host = stripPort(strings.ToLower(strings.TrimSpace(host)))
	if host == "" {
		return HostInfo{Kind: HostNone}
	}

	// Probes and direct pod access arrive by IP literal.
	if net.ParseIP(host) != nil {
		return HostInfo{Kind: HostNone}
	}

	base := strings.ToLower(strings.TrimSpace(cfg.BaseDomain))
	if host == base {
		return HostInfo{Kind: HostNone}
	}

	if suffix := strings.ToLower(strings.TrimSpace(cfg.PreviewSuffix)); suffix != "" && host == suffix {
		return HostInfo{Kind: HostNone}
	}

	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return HostInfo{Kind: HostNone}
	}

	name := labels[0]
	if redirectSubdomains[name] {
		return HostInfo{Kind: HostRedirect, Name: name}
	}
	if reservedSubdomains[name] {
		return HostInfo{Kind: HostReserved, Name: name}
	}

	return HostInfo{Kind: HostCandidate, Name: name}
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	// Bracketed IPv6 without a port fails SplitHostPort.
	return strings.Trim(host, "[]")
}
