package cli

import (
	"github.com/spf13/cobra"
)

var (
	handlerFlag string
	noColor     bool
)

var rootCmd = &cobra.Command{
	Use:   "domainctl",
	Short: "CloudFormation custom resources for App Runner custom domains",
	Long: `domainctl runs the custom resource handlers that bind a custom domain to an
App Runner service:

  • certificate-validation  writes the ACM DNS validation records into Route 53
  • custom-domain           associates the domain with the App Runner service

Each handler reports exactly one SUCCESS or FAILED response to CloudFormation.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&handlerFlag, "handler", "", "Handler to run: certificate-validation or custom-domain (default $DOMAINCTL_HANDLER)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(versionCmd)
}
