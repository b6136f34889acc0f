// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"ipLensGo/internal/core"
	"ipLensGo/internal/core/logger"
	"ipLensGo/internal/storage"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	noColor    bool
	version    = "0.1.0"
	configPath string
	config     = core.DefaultConfig()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "iplens",
	Short: "iplens: bulk IP exposure analysis over InternetDB.",
	Long: `iplens looks up IPv4 addresses in InternetDB (open ports, hostnames, CPEs,
known CVEs), probes the reported ports for reachability, and ranks a list of
addresses by exposure. CVE details are fetched from cvedb through a relay.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetupLogger("debug")
		} else {
			logger.SetupLogger(config.LogLevel)
		}
		if noColor {
			color.NoColor = true
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	printBanner()
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func loadConfigOrExit() {
	if configPath == "" {
		return
	}
	cfg, err := core.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	config = cfg
}

// openCache returns nil when no cache path is configured; a nil cache is a
// no-op for every caller.
func openCache() *storage.Cache {
	if config.Cache.Path == "" {
		return nil
	}
	c, err := storage.Open(config.Cache.Path, config.Cache.TTL)
	if err != nil {
		logger.GetLogger().Warnf("Cache disabled: %v", err)
		return nil
	}
	return c
}

func printBanner() {
	banner := `
 _       _
(_)_ __ | |    ___ _ __  ___
| | '_ \| |   / _ \ '_ \/ __|
| | |_) | |__|  __/ | | \__ \
|_| .__/|_____\___|_| |_|___/
  |_|
`
	fmt.Fprint(os.Stderr, color.CyanString(banner))
	fmt.Fprintln(os.Stderr, color.MagentaString("iplens v%s - bulk IP exposure analysis", version))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output for debugging.")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output.")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (YAML or JSON)")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("{{.Version}}\r\n")

	cobra.OnInitialize(loadConfigOrExit)
}
