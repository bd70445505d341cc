package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Persistent flags available to all subcommands
	configFile string
	envFile    string
	logLevel   string
	logFormat  string
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "soapdemo",
	Short: "soapdemo is a SOAP 1.1 user registration service",
	Long: `soapdemo serves a small SOAP 1.1 user service over HTTP: RegisterUser,
GetUsers and GetUser on POST /soap, the WSDL on GET /wsdl and a
documentation page on GET /.

Configuration is read from soapdemo.yaml (or --config), an optional .env
file, SOAPDEMO_* environment variables and flags, each overriding the last.`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Main()
}

// Execute runs the root command and exits with its status.
// This is called by main.main().
func Execute() {
	os.Exit(Main())
}

// Main runs the root command against os.Args and returns the exit status.
func Main() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (default: $SOAPDEMO_CONFIG or ./soapdemo.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a dotenv file (default: ./.env if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text, json")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}
