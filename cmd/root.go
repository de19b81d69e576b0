package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

// startupParams carries everything a subcommand needs that was decided at
// startup: the run configuration and the output loggers.
type startupParams struct {
	cfg     RunConfig
	verbose bool

	monitorAddr string

	out *log.Logger
	ver *log.Logger
}

// verbosef logs only when --verbose is set.
func (sp *startupParams) verbosef(format string, args ...interface{}) {
	if sp.verbose {
		sp.ver.Printf(format, args...)
	}
}

var cfgFile string
var verbose bool
var randomSeed int64
var monitorAddr string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rjmcmc",
	Short: "Reversible-jump MCMC sampler plugins",
	Long: `rjmcmc provides trans-dimensional MCMC sampling over in-memory
model graphs. Among other features:

  - A reversible-jump sampler that toggles a coefficient in and out of a model
  - A conditional wrapper that gates any sampler on an inclusion state
  - Random-walk and block Metropolis-Hastings samplers
  - An ordered sampler registry with two monitor groups and thinning
`,
}

func newStartupParams() (*startupParams, error) {
	sp := &startupParams{
		cfg:         DefaultRunConfig(),
		verbose:     verbose,
		monitorAddr: monitorAddr,
		out:         log.New(os.Stdout, "", 0),
		ver:         log.New(os.Stderr, "", 0),
	}

	if len(cfgFile) > 0 {
		cfg, err := LoadRunConfig(cfgFile)
		if err != nil {
			return nil, err
		}
		sp.cfg = cfg
	}

	if randomSeed != 0 {
		sp.cfg.Seed = randomSeed
	}

	if !sp.verbose {
		sp.ver = log.New(io.Discard, "", 0)
	}

	return sp, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML run configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging (default is much more parsimonious)")
	rootCmd.PersistentFlags().Int64VarP(&randomSeed, "seed", "r", 0, "Random seed (overrides config file)")
	rootCmd.PersistentFlags().StringVarP(&monitorAddr, "monitor", "m", "", "Address for the expvar progress monitor (e.g. :8000)")

	rootCmd.AddCommand(spikeSlabCmd)
	rootCmd.AddCommand(dotCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
