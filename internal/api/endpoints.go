package api

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoints holds the resolved URL of every endpoint role
type Endpoints struct {
	Activate        string
	Session         string
	EarnInfo        string
	Mission         string
	CompleteMission string
	// Ping is tried in order until one succeeds
	Ping []string
}

// ResolveEndpoints joins relative paths onto baseURL. Absolute URLs are
// kept as they are.
func ResolveEndpoints(baseURL string, paths EndpointPaths) (Endpoints, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return Endpoints{}, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}

	resolve := func(p string) (string, error) {
		ref, err := url.Parse(strings.TrimLeft(p, "/"))
		if err != nil {
			return "", fmt.Errorf("invalid endpoint %q: %w", p, err)
		}
		if ref.IsAbs() {
			return ref.String(), nil
		}
		return base.ResolveReference(ref).String(), nil
	}

	var ep Endpoints
	fields := []struct {
		dst *string
		src string
	}{
		{&ep.Activate, paths.Activate},
		{&ep.Session, paths.Session},
		{&ep.EarnInfo, paths.EarnInfo},
		{&ep.Mission, paths.Mission},
		{&ep.CompleteMission, paths.CompleteMission},
	}
	for _, f := range fields {
		if *f.dst, err = resolve(f.src); err != nil {
			return Endpoints{}, err
		}
	}
	for _, p := range paths.Ping {
		u, err := resolve(p)
		if err != nil {
			return Endpoints{}, err
		}
		ep.Ping = append(ep.Ping, u)
	}
	return ep, nil
}

// EndpointPaths is the configurable, possibly relative form of Endpoints
type EndpointPaths struct {
	Activate        string   `yaml:"activate" toml:"activate"`
	Session         string   `yaml:"session" toml:"session"`
	EarnInfo        string   `yaml:"earn_info" toml:"earn_info"`
	Mission         string   `yaml:"mission" toml:"mission"`
	CompleteMission string   `yaml:"complete_mission" toml:"complete_mission"`
	Ping            []string `yaml:"ping" toml:"ping"`
}

// DefaultEndpointPaths returns the stock endpoint layout
func DefaultEndpointPaths() EndpointPaths {
	return EndpointPaths{
		Activate:        "/api/auth/active-account",
		Session:         "/api/auth/session",
		EarnInfo:        "/api/earn/info",
		Mission:         "/api/mission",
		CompleteMission: "/api/mission/complete-mission",
		Ping:            []string{"/api/network/ping"},
	}
}
