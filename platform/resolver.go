package platform

import (
	"errors"
	"strings"
)

// Platform identifies the kind of host the client is running in.
type Platform string

const (
	// PlatformApp is the native mini-program container.
	PlatformApp Platform = "weapp"
	// PlatformWeb is a browser.
	PlatformWeb Platform = "h5"
)

const providerBrowserMarker = "micromessenger"

// ErrProbeUnavailable is returned by probes that cannot inspect the host.
var ErrProbeUnavailable = errors.New("platform probe unavailable")

// Probe inspects the host environment. Either method may fail.
type Probe interface {
	Platform() (Platform, error)
	UserAgent() (string, error)
}

// StaticProbe is a [Probe] with fixed answers.
type StaticProbe struct {
	Env Platform
	UA  string
	Err error
}

// Platform returns the configured platform or error.
func (p StaticProbe) Platform() (Platform, error) {
	if p.Err != nil {
		return "", p.Err
	}
	return p.Env, nil
}

// UserAgent returns the configured user agent or error.
func (p StaticProbe) UserAgent() (string, error) {
	if p.Err != nil {
		return "", p.Err
	}
	return p.UA, nil
}

// Resolver answers capability questions from a [Probe]. Answers are computed
// on every call and never cached.
type Resolver struct {
	probe Probe
}

// NewResolver creates a [Resolver]. A nil probe behaves like a failing probe.
func NewResolver(probe Probe) *Resolver {
	return &Resolver{probe: probe}
}

// CurrentPlatform returns the detected platform, or [PlatformWeb] when the
// probe fails or reports something unknown.
func (r *Resolver) CurrentPlatform() Platform {
	if r == nil || r.probe == nil {
		return PlatformWeb
	}
	p, err := r.probe.Platform()
	if err != nil || p != PlatformApp {
		return PlatformWeb
	}
	return p
}

// CanUseProviderLogin reports whether provider login is available: always in
// the native container, and in a browser only when it is the provider's own
// in-app browser. Probe failures yield false.
func (r *Resolver) CanUseProviderLogin() bool {
	if r == nil || r.probe == nil {
		return false
	}
	p, err := r.probe.Platform()
	if err != nil {
		return false
	}
	switch p {
	case PlatformApp:
		return true
	case PlatformWeb:
		ua, err := r.probe.UserAgent()
		if err != nil {
			return false
		}
		return strings.Contains(strings.ToLower(ua), providerBrowserMarker)
	default:
		return false
	}
}
