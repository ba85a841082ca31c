package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/clearpath-coaching/hugoctx/internal/cli/admin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hugoctxd",
		Short: "Hugo context engine daemon",
		Long:  "Hugo retrieval and context-assembly daemon for running the API server, memory decay passes, and chunk ingestion",
	}

	// Accept underscores in flag names so env-style spellings work too.
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.DecayCmd())
	rootCmd.AddCommand(admin.IngestCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
