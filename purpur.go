package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const DefaultPurpurAPI = "https://api.purpurmc.org/v2"

const purpurProject = "purpur"
const purpurVersionsFmt = "%s/%s"
const purpurBuildsFmt = "%s/%s/%s"
const purpurDownloadFmt = "%s/%s/%s/%d/download"

type Purpur struct {
	API string
}

type purpurBuilds struct {
	Builds struct {
		Latest string            `json:"latest"`
		All    []json.RawMessage `json:"all"`
	} `json:"builds"`
}

func (p Purpur) Name() string {
	return purpurProject
}

func (p Purpur) DisplayName() string {
	return "Purpur"
}

func (p Purpur) base() string {
	return strings.TrimSuffix(p.API, "/")
}

func (p Purpur) VersionsURL() string {
	return fmt.Sprintf(purpurVersionsFmt, p.base(), purpurProject)
}

func (p Purpur) BuildsURL(version string) string {
	return fmt.Sprintf(purpurBuildsFmt, p.base(), purpurProject, url.PathEscape(version))
}

func (p Purpur) DownloadURL(version string, build int64) string {
	return fmt.Sprintf(purpurDownloadFmt, p.base(), purpurProject, url.PathEscape(version), build)
}

func (p Purpur) ParseVersions(body []byte) (VersionList, error) {
	return parseVersions(body)
}

// ParseBuilds reads builds.all, which Purpur serves as numeric strings.
func (p Purpur) ParseBuilds(body []byte) (BuildList, error) {
	var resp purpurBuilds
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.Builds.All == nil {
		return nil, errors.New("response has no builds.all array")
	}

	builds := make(BuildList, 0, len(resp.Builds.All))
	for _, raw := range resp.Builds.All {
		var s *string
		if err := json.Unmarshal(raw, &s); err != nil || s == nil {
			continue
		}
		b, err := strconv.ParseInt(*s, 10, 64)
		if err != nil || b < 0 {
			continue
		}
		builds = append(builds, b)
	}
	return builds, nil
}
