// Command delays runs one-off report jobs from the command line: a delayed
// orders report from local files, an alert listing from the live feed, or
// loading an order export into the SQLite order store.
package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "delays",
		Short: "Match open orders against active severe weather alerts",
		Long: `delays builds the weather delayed orders workbook without running the service.

Settings such as MONITORED_STATES, ALERT_EXCLUSION_TERMS, and ALERT_FEED_URL
are read from the environment or a .env file, exactly as the service does.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newReportCmd())
	root.AddCommand(newAlertsCmd())
	root.AddCommand(newImportCmd())
	return root
}
