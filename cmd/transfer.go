package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/notargets/parmortar/InputParameters"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// TransferCmd represents the transfer command
var TransferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer an analytic field between two meshes and report the error",
	Long: `
Builds a master and a slave mesh, partitions both over the requested number
of ranks, projects an analytic field onto the master, transfers it to the
slave and compares the result with the field projected directly.

parmortar transfer -I input.yaml -n 4 --profile cpu`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			tp  *InputParameters.TransferParameters
			sum *TransferSummary
		)
		if tp, err = loadParameters(viper.GetString("transfer.inputFile")); err != nil {
			return
		}
		if n := viper.GetInt("transfer.procs"); n > 0 {
			tp.Processes = n
		}
		if p := viper.GetString("transfer.partitioner"); p != "" {
			tp.Partitioner = p
		}
		tp.Verbose = tp.Verbose || viper.GetBool("transfer.verbose")
		if err = tp.Validate(); err != nil {
			return
		}
		tp.Print(os.Stdout)
		switch viper.GetString("transfer.profile") {
		case "":
		case "cpu":
			defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
		case "mem":
			defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
		default:
			return fmt.Errorf("unknown profile mode %q, want cpu or mem", viper.GetString("transfer.profile"))
		}
		run := func() (err error) {
			sum, err = RunTransfer(context.Background(), tp, os.Stdout)
			return
		}
		if viper.GetBool("transfer.perf") {
			var count uint64
			if count, err = countInstructions(run); err != nil {
				if sum == nil {
					return
				}
				fmt.Printf("perf: %v\n", err)
				err = nil
			} else {
				fmt.Printf("%d CPU instructions\n", count)
			}
		} else if err = run(); err != nil {
			return
		}
		sum.Print(os.Stdout)
		return
	},
}

func loadParameters(fileName string) (tp *InputParameters.TransferParameters, err error) {
	var data []byte
	tp = InputParameters.NewTransferParameters()
	if fileName == "" {
		return
	}
	if data, err = os.ReadFile(fileName); err != nil {
		return nil, err
	}
	if err = tp.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	return
}

func init() {
	rootCmd.AddCommand(TransferCmd)
	TransferCmd.Flags().StringP("inputFile", "I", "", "YAML file with the master and slave meshes, the field and solver settings")
	TransferCmd.Flags().IntP("procs", "n", 0, "number of ranks, overrides Processes from the input file")
	TransferCmd.Flags().StringP("partitioner", "p", "", "block, rcb or metis (needs the metis build tag)")
	TransferCmd.Flags().BoolP("verbose", "v", false, "log per rank pair search and skipped pairs")
	TransferCmd.Flags().String("profile", "", "write a cpu or mem profile to the current directory")
	TransferCmd.Flags().Bool("perf", false, "count CPU instructions of the transfer (linux only)")
	for _, name := range []string{"inputFile", "procs", "partitioner", "verbose", "profile", "perf"} {
		_ = viper.BindPFlag("transfer."+name, TransferCmd.Flags().Lookup(name))
	}
}
