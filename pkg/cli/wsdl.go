package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/soapdemo/pkg/cli/internal/output"
	"github.com/getmockd/soapdemo/pkg/soap"
)

var wsdlBaseURL string

var wsdlCmd = &cobra.Command{
	Use:   "wsdl",
	Short: "Print or validate WSDL documents",
}

var wsdlPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the service WSDL",
	Example: `  soapdemo wsdl print
  soapdemo wsdl print --base-url https://users.example.com > users.wsdl`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := io.WriteString(cmd.OutOrStdout(), soap.GenerateWSDL(wsdlBaseURL))
		return err
	},
}

var wsdlValidateCmd = &cobra.Command{
	Use:   "validate <file|->",
	Short: "Check that a file is a WSDL document and summarize it",
	Example: `  soapdemo wsdl validate users.wsdl
  curl -s http://localhost:8787/wsdl | soapdemo wsdl validate -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		summary, err := soap.ValidateWSDL(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if jsonOutput {
			return outputJSON(cmd, summary)
		}

		w := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(w, "%s: valid WSDL\n", args[0])
		_, _ = fmt.Fprintf(w, "  target namespace: %s\n", summary.TargetNamespace)
		_, _ = fmt.Fprintf(w, "  services:         %s\n", strings.Join(summary.Services, ", "))
		_, _ = fmt.Fprintf(w, "  operations:       %s\n", strings.Join(summary.Operations, ", "))
		_, _ = fmt.Fprintf(w, "  port types: %d  bindings: %d  messages: %d\n",
			summary.PortTypes, summary.Bindings, summary.Messages)
		if summary.Address != "" {
			_, _ = fmt.Fprintf(w, "  address:          %s\n", summary.Address)
		} else {
			output.Warn(cmd.ErrOrStderr(), "no soap:address found")
		}
		return nil
	},
}

// readInput reads name, or stdin when name is "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func init() {
	rootCmd.AddCommand(wsdlCmd)
	wsdlCmd.AddCommand(wsdlPrintCmd)
	wsdlCmd.AddCommand(wsdlValidateCmd)

	wsdlPrintCmd.Flags().StringVar(&wsdlBaseURL, "base-url", "http://localhost:8787", "Base URL for the soap:address location")
}
