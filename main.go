package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const verStr = "1.0"

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	v := NewViper()

	cmd := &cobra.Command{
		Use:           "vizir",
		Short:         "Vizir - Minecraft server installer",
		Long:          "Downloads a Paper or Purpur server build and writes a start script next to it.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return v.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, in, out)
		},
	}
	addFlags(cmd.Flags())
	return cmd
}

func addFlags(flags *pflag.FlagSet) {
	flags.String("type", "", "Server type to install: paper or purpur")
	flags.String("version", "", "Minecraft version to install")
	flags.Int64("build", LatestBuild, "Build to install. Default: latest build")
	flags.String("path", "", "Directory to install in. Default: ask, current directory")
	flags.String("ram", "", "Memory given to the server, e.g. 4G. Default: ask, "+defaultRAM)
	flags.Bool("gui", false, "Start the server with its GUI")
	flags.Bool("auto", false, "Ask no questions, use defaults")
	flags.Bool("java", false, "Download a Java runtime next to the server")
	flags.Bool("noscript", false, "Skip creating the start script")
	flags.Bool("verbose", false, "Be a bit noisier on actions taken")
	flags.String("config", "", "Path to a config file")
	flags.String("env-file", "", "Path to an env file")
}

func run(ctx context.Context, v *viper.Viper, in io.Reader, out io.Writer) error {
	cfg, err := LoadConfig(v)
	if err != nil {
		return err
	}

	logger, err := NewLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	client := &http.Client{}
	console := NewConsole(in, out, cfg.Auto)
	meta := NewMetadataClient(client, cfg.UserAgent, logger)
	downloader := NewDownloader(client, cfg.UserAgent, logger, NewProgressBar(out, ServerJarName))
	installer := NewInstaller(cfg, console, meta, downloader, logger, runtime.GOOS)

	if _, err := installer.Run(ctx); err != nil {
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			// Failed runs end like successful ones, the message tells the user what to do.
			console.Failure("%s", stepErr.Message)
			return nil
		}
		return err
	}
	return nil
}
