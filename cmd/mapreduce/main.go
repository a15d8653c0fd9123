// Command mapreduce launches the coordinator described by a JSON config
// file, and (via its hidden internal-worker subcommand) is itself the
// binary the Supervisor re-execs to run each isolated map or reduce
// worker process.
package main

import (
	"fmt"
	"os"

	mapreduce "github.com/san-deep-reddy/map-reduce"
	_ "github.com/san-deep-reddy/map-reduce/functions/invertedindex"
	_ "github.com/san-deep-reddy/map-reduce/functions/wordcount"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "mapreduce",
		Short:        "single-host MapReduce execution engine",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newInternalWorkerCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		configPath string
		killIdx    int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a MapReduce job to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := mapreduce.LoadConfig(configPath)
			if err != nil {
				// Configuration errors are fatal at startup, before any
				// job state is created.
				return err
			}

			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("mapreduce: build logger: %w", err)
			}
			defer logger.Sync()
			sugar := logger.Sugar()

			coord := mapreduce.NewCoordinator(cfg, killIdx, sugar)
			return coord.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the JSON job configuration (required)")
	cmd.Flags().IntVar(&killIdx, "kill-mapper-idx", -1, "index of a mapper to kill immediately after spawn, for fault-injection testing (-1 disables)")
	cmd.MarkFlagRequired("config")

	return cmd
}

// newInternalWorkerCmd is the subcommand the Supervisor re-execs into for
// every worker process; it is not meant to be invoked directly by users,
// so it is hidden from help output. All of its behavior lives in
// mapreduce.RunMapWorkerProcess/RunReduceWorkerProcess so that tests can
// exercise the exact same subprocess wire format without going through
// cobra.
func newInternalWorkerCmd() *cobra.Command {
	var (
		mode            string
		shard           string
		intermediateDir string
		outputDir       string
		mapperID        int
		reducerID       int
		numReducers     int
		numMappers      int
		mapFnName       string
		reduceFnName    string
	)

	cmd := &cobra.Command{
		Use:    "internal-worker",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch mode {
			case "map":
				return mapreduce.RunMapWorkerProcess(shard, intermediateDir, mapperID, numReducers, mapFnName)
			case "reduce":
				return mapreduce.RunReduceWorkerProcess(intermediateDir, outputDir, reducerID, numMappers, reduceFnName)
			default:
				return fmt.Errorf("mapreduce: unknown internal-worker mode %q", mode)
			}
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "map or reduce")
	cmd.Flags().StringVar(&shard, "shard", "", "mapper shard path")
	cmd.Flags().StringVar(&intermediateDir, "intermediate-dir", "", "intermediate bucket directory")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "reducer output directory")
	cmd.Flags().IntVar(&mapperID, "mapper-id", 0, "mapper index")
	cmd.Flags().IntVar(&reducerID, "reducer-id", 0, "reducer index")
	cmd.Flags().IntVar(&numReducers, "num-reducers", 1, "reducer count")
	cmd.Flags().IntVar(&numMappers, "num-mappers", 1, "mapper count")
	cmd.Flags().StringVar(&mapFnName, "map-fn", "wordcount", "registered map function name")
	cmd.Flags().StringVar(&reduceFnName, "reduce-fn", "wordcount", "registered reduce function name")

	return cmd
}
