package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	getter "github.com/hashicorp/go-getter"
	hashVer "github.com/hashicorp/go-version"
	"go.uber.org/zap"
)

const DefaultAdoptiumAPI = "https://api.adoptium.net"

const adoptiumFeatureReleasesFmt = "%s/v3/assets/feature_releases/%d/ga"

// JavaProvider supplies the java binary the launch script runs the server with.
type JavaProvider interface {
	Provision(ctx context.Context, installPath string) error
	GetJavaPath(installPath string) string
}

// region NoOp

type NoOpJavaProvider struct {
	GOOS string
}

func (e *NoOpJavaProvider) Provision(ctx context.Context, installPath string) error {
	return nil
}

func (e *NoOpJavaProvider) GetJavaPath(installPath string) string {
	if e.GOOS == "windows" {
		return "java.exe"
	}
	return "java"
}

// endregion

// region Java requirement

var javaRequirements = []struct {
	minecraft string
	java      int
}{
	{"1.20.5", 21},
	{"1.18", 17},
	{"1.17", 16},
}

const newestJava = 21
const oldestJava = 8

// JavaFeatureFor returns the Java feature release a Minecraft version needs.
// Unparsable versions get the newest one.
func JavaFeatureFor(minecraft string) int {
	mcVer, err := hashVer.NewVersion(minecraft)
	if err != nil {
		return newestJava
	}
	for _, req := range javaRequirements {
		if mcVer.GreaterThanOrEqual(hashVer.Must(hashVer.NewVersion(req.minecraft))) {
			return req.java
		}
	}
	return oldestJava
}

// endregion

//region Adoptium

// AdoptiumRelease is the part of a feature_releases entry the provider reads.
type AdoptiumRelease struct {
	ReleaseName string `json:"release_name"`
	Binaries    []struct {
		ImageType string `json:"image_type"`
		Package   struct {
			Name string `json:"name"`
			Link string `json:"link"`
		} `json:"package"`
	} `json:"binaries"`
}

// GetterFunc fetches src into the directory dst, unpacking archives.
type GetterFunc func(ctx context.Context, src, dst string) error

func goGetter(ctx context.Context, src, dst string) error {
	client := &getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Mode: getter.ClientModeDir,
	}
	return client.Get()
}

type AdoptiumJavaProvider struct {
	API     string
	Feature int
	GOOS    string
	GOARCH  string

	meta      *MetadataClient
	get       GetterFunc
	logger    *zap.Logger
	release   *AdoptiumRelease
	imageType string // "jre" or "jdk"
}

func NewAdoptiumJavaProvider(api string, feature int, meta *MetadataClient, logger *zap.Logger) *AdoptiumJavaProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdoptiumJavaProvider{
		API:     strings.TrimSuffix(api, "/"),
		Feature: feature,
		GOOS:    runtime.GOOS,
		GOARCH:  runtime.GOARCH,
		meta:    meta,
		get:     goGetter,
		logger:  logger,
	}
}

// Provision downloads the newest GA release of the feature version and
// unpacks it into <installPath>/jre.
func (self *AdoptiumJavaProvider) Provision(ctx context.Context, installPath string) error {
	rel, err := self.GetLatestAdoptiumRelease(ctx, self.GOARCH, true)
	if err != nil {
		return err
	}
	if len(rel.Binaries) == 0 {
		return fmt.Errorf("adoptium release %s has no binaries", rel.ReleaseName)
	}

	binary := rel.Binaries[0]
	archive := archiveFormat(binary.Package.Name)
	if archive == "" {
		return fmt.Errorf("don't know how to extract adoptium archive %s", binary.Package.Name)
	}

	src, err := url.Parse(binary.Package.Link)
	if err != nil {
		return err
	}
	q := src.Query()
	q.Set("archive", archive)
	src.RawQuery = q.Encode()

	jrePath, err := filepath.Abs(filepath.Join(installPath, "jre"))
	if err != nil {
		return err
	}

	self.logger.Info("Downloading Java runtime",
		zap.String("release", rel.ReleaseName),
		zap.String("image", binary.ImageType),
		zap.String("dest", jrePath),
	)
	if err := self.get(ctx, src.String(), jrePath); err != nil {
		return fmt.Errorf("failed to fetch %s: %w", binary.Package.Name, err)
	}

	self.release = rel
	self.imageType = binary.ImageType
	return nil
}

func (self *AdoptiumJavaProvider) GetJavaPath(installPath string) string {
	executable := "java"
	binFolder := "bin"
	switch self.GOOS {
	case "windows":
		executable = "java.exe"
	case "darwin":
		binFolder = filepath.Join("Contents", "Home", "bin")
	}

	if self.release == nil {
		return executable
	}

	// JRE archives unpack into "<release>-jre", JDK archives into "<release>".
	folder := self.release.ReleaseName
	if self.imageType == "jre" {
		folder += "-jre"
	}
	return filepath.Join(installPath, "jre", folder, binFolder, executable)
}

func (self *AdoptiumJavaProvider) GetLatestAdoptiumRelease(ctx context.Context, architecture string, jre bool) (*AdoptiumRelease, error) {
	var releases []AdoptiumRelease
	u := fmt.Sprintf(adoptiumFeatureReleasesFmt, self.API, self.Feature)
	u += GetAdoptiumQueryProperties(self.GOOS, architecture, jre)
	err := self.meta.GetJSON(ctx, u, &releases)
	if err == nil && len(releases) == 0 {
		err = errors.New("no adoptium releases found")
	}
	if err != nil {
		if self.GOOS == "darwin" && architecture == "arm64" {
			// Apple silicon can run x64 through Rosetta.
			return self.GetLatestAdoptiumRelease(ctx, "amd64", jre)
		}
		if jre {
			// No JRE for this platform, a JDK will do.
			return self.GetLatestAdoptiumRelease(ctx, architecture, false)
		}
		return nil, err
	}

	return &releases[0], nil
}

// archiveFormat is the go-getter archive hint for an Adoptium package name.
func archiveFormat(name string) string {
	for _, ext := range []string{"tar.gz", "zip"} {
		if strings.HasSuffix(name, "."+ext) {
			return ext
		}
	}
	return ""
}

var adoptiumOS = map[string]string{"darwin": "mac"}

var adoptiumArch = map[string]string{
	"amd64": "x64",
	"386":   "x86",
	"arm64": "aarch64",
}

// GetAdoptiumQueryProperties returns the query string, leading "?" included,
// selecting a hotspot build for goos/architecture.
func GetAdoptiumQueryProperties(goos string, architecture string, jre bool) string {
	if name, ok := adoptiumOS[goos]; ok {
		goos = name
	}
	if arch, ok := adoptiumArch[architecture]; ok {
		architecture = arch
	}
	imageType := "jdk"
	if jre {
		imageType = "jre"
	}

	q := url.Values{}
	q.Set("project", "jdk")
	q.Set("image_type", imageType)
	q.Set("vendor", "eclipse")
	q.Set("jvm_impl", "hotspot")
	q.Set("heap_size", "normal")
	q.Set("architecture", architecture)
	q.Set("os", goos)
	return "?" + q.Encode()
}

//endregion
