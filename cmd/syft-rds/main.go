package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenMined/syft-rds/pkg/client"
	"github.com/OpenMined/syft-rds/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	flagRoot  string
	flagEmail string
	flagHost  string
	flagDebug bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "syft-rds",
	Short: "Remote data science over a shared datasite",
	Long: `syft-rds runs code reviews and private executions between a
Data Owner and a Data Scientist over a synced datasite filesystem.

The Data Owner serves RPC from their datasite mailbox, reviews
submitted code, runs it against private data and shares results.
The Data Scientist submits code against published datasets and
fetches shared results.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := log.InfoLevel
		if flagDebug {
			level = log.DebugLevel
		}
		log.Init(log.Config{Level: level})
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"syft-rds version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", defaultRoot(), "datasite root directory")
	rootCmd.PersistentFlags().StringVar(&flagEmail, "email", os.Getenv("SYFTBOX_EMAIL"), "caller identity email")
	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "", "data owner email (defaults to --email)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(datasetsCmd)
	rootCmd.AddCommand(runtimesCmd)
}

func defaultRoot() string {
	if dir := os.Getenv("SYFTBOX_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home + "/SyftBox"
}

// newClient builds the facade towards the selected host datasite.
func newClient() (*client.Client, error) {
	host := flagHost
	if host == "" {
		host = flagEmail
	}
	return client.New(client.Config{
		Root:  flagRoot,
		Host:  host,
		Email: flagEmail,
	})
}
