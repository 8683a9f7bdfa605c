package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gosuri/uitable"
	"go.uber.org/zap"
)

const defaultRAM = "4G"

// StepError ends an install run. Message is shown to the user as is.
type StepError struct {
	Message string
	Err     error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type InstallResult struct {
	Target DownloadTarget
	Script string
	Java   string
}

// Installer walks the user from picking a server type to a ready-to-run
// install directory.
type Installer struct {
	cfg        *Config
	console    *Console
	meta       *MetadataClient
	downloader *Downloader
	logger     *zap.Logger
	goos       string

	// newJava returns the provider for a Java feature release when --java is set.
	newJava func(feature int) JavaProvider
}

func NewInstaller(cfg *Config, console *Console, meta *MetadataClient, downloader *Downloader, logger *zap.Logger, goos string) *Installer {
	if logger == nil {
		logger = zap.NewNop()
	}
	i := &Installer{
		cfg:        cfg,
		console:    console,
		meta:       meta,
		downloader: downloader,
		logger:     logger,
		goos:       goos,
	}
	i.newJava = func(feature int) JavaProvider {
		p := NewAdoptiumJavaProvider(cfg.AdoptiumAPI, feature, meta, logger)
		p.GOOS = goos
		return p
	}
	return i
}

func (i *Installer) Run(ctx context.Context) (*InstallResult, error) {
	i.console.Title("                    Vizir - Server Manager")
	i.console.Info("Welcome to Vizir! Let's set up your Minecraft server.")
	fmt.Fprintln(i.console.Writer())

	dist, err := i.chooseDistribution()
	if err != nil {
		return nil, err
	}

	i.console.Separator()
	i.console.Info("Fetching versions...")
	versions := i.meta.ListVersions(ctx, dist)
	if len(versions) == 0 {
		return nil, &StepError{Message: "Failed to fetch versions. Please check your internet connection."}
	}

	version, err := i.chooseVersion(versions)
	if err != nil {
		return nil, err
	}

	i.console.Separator()
	i.console.Info("Fetching builds...")
	builds := i.meta.ListBuilds(ctx, dist, version)
	if len(builds) == 0 {
		return nil, &StepError{Message: fmt.Sprintf("No builds found for the selected version %s. Please restart the program and try selecting another version.", version)}
	}
	i.console.Info("Available builds:")
	for _, b := range builds {
		i.console.Bullet("Build %d", b)
	}

	installPath, err := i.chooseInstallPath()
	if err != nil {
		return nil, err
	}

	target, err := NewDownloadTarget(dist, versions, version, builds, i.cfg.Build, installPath)
	if err != nil {
		return nil, &StepError{Message: "Cannot select the build to download", Err: err}
	}
	if latest, _ := builds.Latest(); target.Build == latest {
		i.console.Success("The latest available build for version %s is %s.", i.console.Value(version), i.console.Value(target.Build))
	} else {
		i.console.Success("Using build %s for version %s.", i.console.Value(target.Build), i.console.Value(version))
	}

	i.console.Separator()
	i.console.Info("Downloading build %d...", target.Build)
	if !i.downloader.Download(ctx, target.URL(), target.Path) {
		return nil, &StepError{Message: "Failed to download the server jar! Please restart the program."}
	}
	i.console.Success("Successfully downloaded the server jar!")

	result := &InstallResult{Target: target}
	java := i.provisionJava(ctx, version, installPath)
	result.Java = java.GetJavaPath("")

	if !i.cfg.NoScript {
		i.console.Separator()
		script, err := i.writeScript(installPath, result.Java)
		if err != nil {
			return nil, err
		}
		result.Script = script
	}

	i.printSummary(result)
	i.console.Separator()
	i.console.Info("Thank you for using Vizir Server Manager!")
	i.console.WaitForEnter("Press Enter to exit the program...")
	return result, nil
}

func (i *Installer) chooseDistribution() (Distribution, error) {
	if i.cfg.Type != "" {
		d, err := GetDistribution(i.cfg.Type, i.cfg)
		if err != nil {
			return nil, &StepError{Message: "Unknown server type", Err: err}
		}
		i.console.Success("You selected %s!", d.DisplayName())
		return d, nil
	}

	dists := Distributions(i.cfg)
	choices := make([]string, len(dists))
	i.console.Info("What type of server would you like to install?")
	for n, d := range dists {
		choices[n] = strconv.Itoa(n + 1)
		fmt.Fprintf(i.console.Writer(), "%d. %s\n", n+1, d.DisplayName())
	}

	answer := i.console.Question("1", choices, true, "Enter your choice")
	n, _ := strconv.Atoi(answer)
	d := dists[n-1]
	i.console.Success("You selected %s!", d.DisplayName())
	return d, nil
}

func (i *Installer) chooseVersion(versions VersionList) (string, error) {
	latest, _ := versions.Latest()
	if i.cfg.Version != "" {
		if !versions.Contains(i.cfg.Version) {
			return "", &StepError{Message: fmt.Sprintf("Version %s is not available. Please restart the program and choose a listed version.", i.cfg.Version)}
		}
		i.console.Success("You selected version: %s", i.console.Value(i.cfg.Version))
		return i.cfg.Version, nil
	}

	fmt.Fprintln(i.console.Writer())
	i.console.Info("Available versions:")
	for _, v := range versions {
		i.console.Bullet("%s", v)
	}

	version := i.console.QuestionValid(latest, versions.Contains,
		"Invalid version. Please enter a valid version from the list.",
		"Enter the version number you want to install (e.g., %s)", latest)
	i.console.Success("You selected version: %s", i.console.Value(version))
	return version, nil
}

func (i *Installer) chooseInstallPath() (string, error) {
	installPath := i.cfg.Path
	if installPath == "" {
		i.console.Separator()
		response := i.console.QuestionFree("current directory", "Where would you like to save the server files?")
		if response != "current directory" {
			installPath = response
		}
	}
	if installPath == "" {
		installPath = "."
	}
	installPath = filepath.Clean(installPath)

	if _, err := os.Stat(filepath.Join(installPath, ServerJarName)); err == nil {
		if !i.console.QuestionYN(true, "%s already contains a server jar - overwrite it?", installPath) {
			return "", &StepError{Message: "Aborted by user"}
		}
	}

	if err := os.MkdirAll(installPath, 0755); err != nil {
		i.logger.Error("Failed to create the install directory", zap.String("path", installPath), zap.Error(err))
		return "", &StepError{Message: fmt.Sprintf("Failed to create the directory %s", installPath), Err: err}
	}
	return installPath, nil
}

// provisionJava falls back to the system java when provisioning fails; the
// server jar is already in place by then.
func (i *Installer) provisionJava(ctx context.Context, version string, installPath string) JavaProvider {
	system := &NoOpJavaProvider{GOOS: i.goos}
	if !i.cfg.Java {
		return system
	}

	feature := JavaFeatureFor(version)
	i.console.Separator()
	i.console.Info("Downloading Java %d...", feature)
	java := i.newJava(feature)
	if err := java.Provision(ctx, installPath); err != nil {
		i.logger.Warn("Java provisioning failed, using java from PATH", zap.Int("feature", feature), zap.Error(err))
		i.console.Failure("Could not download Java %d, the start script will use the java on your PATH.", feature)
		return system
	}
	i.console.Success("Java %d is ready.", feature)
	return java
}

func (i *Installer) writeScript(installPath string, java string) (string, error) {
	ram := i.cfg.RAM
	if ram == "" {
		ram = i.console.QuestionFree(defaultRAM, "How much RAM should be allocated to the server? (e.g., 4G, 8G)")
	}
	gui := i.cfg.GUI
	if !gui {
		gui = i.console.QuestionYN(false, "Do you want a GUI?")
	}

	script, err := WriteStartScript(installPath, StartScript{RAM: ram, GUI: gui, Java: java, GOOS: i.goos})
	if err != nil {
		i.logger.Error("Failed to write the start script", zap.String("path", installPath), zap.Error(err))
		return "", &StepError{Message: "Failed to create the start script", Err: err}
	}
	return script, nil
}

func (i *Installer) printSummary(result *InstallResult) {
	fmt.Fprintln(i.console.Writer())
	i.console.Success("Server setup complete!")

	table := uitable.New()
	table.MaxColWidth = 80
	table.AddRow("SERVER", result.Target.Distribution.DisplayName())
	table.AddRow("VERSION", result.Target.Version)
	table.AddRow("BUILD", result.Target.Build)
	table.AddRow("JAR", result.Target.Path)
	table.AddRow("JAVA", result.Java)
	if result.Script != "" {
		table.AddRow("START SCRIPT", result.Script)
	}
	fmt.Fprintln(i.console.Writer(), table)
	if result.Script != "" {
		i.console.Info("To start the server, run the file: %s", i.console.Value(result.Script))
	}
}
