// Package cli provides the command-line interface for soapdemo.
//
// Commands:
//   - serve: Run the SOAP listener and the admin listener
//   - wsdl print: Render the service WSDL for a base URL
//   - wsdl validate: Check a WSDL file (or stdin) and summarize it
//   - call register|list|get: Invoke a running service through the SOAP client
//   - version: Show soapdemo version
//
// Global flags --config and --env-file select the configuration inputs, and
// --json switches command output to JSON.
package cli
