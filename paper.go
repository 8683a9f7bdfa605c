package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const DefaultPaperAPI = "https://api.papermc.io/v2"

const paperProject = "paper"
const paperVersionsFmt = "%s/projects/%s"
const paperBuildsFmt = "%s/projects/%s/versions/%s/builds"
const paperDownloadFmt = "%s/projects/%s/versions/%s/builds/%d/downloads/%s-%s-%d.jar"

type Paper struct {
	API string
}

type paperBuilds struct {
	Builds []json.RawMessage `json:"builds"`
}

type paperBuild struct {
	Build *int64 `json:"build"`
}

func (p Paper) Name() string {
	return paperProject
}

func (p Paper) DisplayName() string {
	return "Paper"
}

func (p Paper) base() string {
	return strings.TrimSuffix(p.API, "/")
}

func (p Paper) VersionsURL() string {
	return fmt.Sprintf(paperVersionsFmt, p.base(), paperProject)
}

func (p Paper) BuildsURL(version string) string {
	return fmt.Sprintf(paperBuildsFmt, p.base(), paperProject, url.PathEscape(version))
}

func (p Paper) DownloadURL(version string, build int64) string {
	v := url.PathEscape(version)
	return fmt.Sprintf(paperDownloadFmt, p.base(), paperProject, v, build, paperProject, v, build)
}

func (p Paper) ParseVersions(body []byte) (VersionList, error) {
	return parseVersions(body)
}

// ParseBuilds reads builds[i].build. Entries without a numeric build are skipped.
func (p Paper) ParseBuilds(body []byte) (BuildList, error) {
	var resp paperBuilds
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.Builds == nil {
		return nil, errors.New("response has no builds array")
	}

	builds := make(BuildList, 0, len(resp.Builds))
	for _, raw := range resp.Builds {
		var b paperBuild
		if err := json.Unmarshal(raw, &b); err != nil || b.Build == nil || *b.Build < 0 {
			continue
		}
		builds = append(builds, *b.Build)
	}
	return builds, nil
}
