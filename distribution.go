package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const ServerJarName = "server.jar"

// LatestBuild asks for the last listed build instead of a pinned one.
const LatestBuild int64 = -1

var (
	ErrUnknownDistribution = errors.New("unknown server type")
	ErrEmptyVersion        = errors.New("version must not be empty")
	ErrNotListed           = errors.New("not present in the list returned by the API")
)

// Distribution is a server software variant. Each one owns its metadata
// endpoints, the shape of its JSON responses and its download URL template.
type Distribution interface {
	Name() string
	DisplayName() string
	VersionsURL() string
	BuildsURL(version string) string
	DownloadURL(version string, build int64) string
	ParseVersions(body []byte) (VersionList, error)
	ParseBuilds(body []byte) (BuildList, error)
}

// Distributions returns every supported distribution in menu order.
func Distributions(cfg *Config) []Distribution {
	return []Distribution{
		Paper{API: cfg.PaperAPI},
		Purpur{API: cfg.PurpurAPI},
	}
}

func GetDistribution(name string, cfg *Config) (Distribution, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, d := range Distributions(cfg) {
		if d.Name() == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDistribution, name)
}

// VersionList keeps the order the API returned.
type VersionList []string

func (l VersionList) Contains(version string) bool {
	for _, v := range l {
		if v == version {
			return true
		}
	}
	return false
}

// Latest is the last listed version.
func (l VersionList) Latest() (string, bool) {
	if len(l) == 0 {
		return "", false
	}
	return l[len(l)-1], true
}

// BuildList keeps the order the API returned.
type BuildList []int64

// Latest is the last element by position, not the numeric maximum.
func (l BuildList) Latest() (int64, bool) {
	if len(l) == 0 {
		return 0, false
	}
	return l[len(l)-1], true
}

func (l BuildList) Contains(build int64) bool {
	for _, b := range l {
		if b == build {
			return true
		}
	}
	return false
}

func (l BuildList) Ascending() bool {
	for i := 1; i < len(l); i++ {
		if l[i] < l[i-1] {
			return false
		}
	}
	return true
}

func ResolveDownloadURL(d Distribution, version string, build int64) string {
	if d == nil {
		return ""
	}
	return d.DownloadURL(version, build)
}

type DownloadTarget struct {
	Distribution Distribution
	Version      string
	Build        int64
	Path         string
}

// NewDownloadTarget builds a target for a version and build that were both
// returned by the API. A negative build selects the latest one.
func NewDownloadTarget(d Distribution, versions VersionList, version string, builds BuildList, build int64, dir string) (DownloadTarget, error) {
	var target DownloadTarget
	if d == nil {
		return target, ErrUnknownDistribution
	}
	if version == "" {
		return target, ErrEmptyVersion
	}
	if !versions.Contains(version) {
		return target, fmt.Errorf("version %s: %w", version, ErrNotListed)
	}
	if build < 0 {
		latest, ok := builds.Latest()
		if !ok {
			return target, fmt.Errorf("no builds for %s %s", d.DisplayName(), version)
		}
		build = latest
	} else if !builds.Contains(build) {
		return target, fmt.Errorf("build %d: %w", build, ErrNotListed)
	}

	target = DownloadTarget{
		Distribution: d,
		Version:      version,
		Build:        build,
		Path:         filepath.Join(dir, ServerJarName),
	}
	return target, nil
}

func (t DownloadTarget) URL() string {
	return ResolveDownloadURL(t.Distribution, t.Version, t.Build)
}
