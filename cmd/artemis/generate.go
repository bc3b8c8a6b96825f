package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peter-kozarec/artemis/pkg/datasource/synthetic"
)

const defaultGeneratedTicks = 100000

func newGenerateCmd(a *app) *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "generate [ticks] [output]",
		Short: "Write a synthetic ES futures tick file",
		Long: `Generate a reproducible mean reverting tick stream around 4500 on a
0.25 tick grid and write it as timestamp,bid,ask,volume CSV.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticks := int64(defaultGeneratedTicks)
			output := defaultDataFile
			if len(args) > 0 {
				n, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || n < 0 {
					return a.fail("invalid arguments", fmt.Errorf("invalid tick count %q", args[0]))
				}
				ticks = n
			}
			if len(args) > 1 {
				output = args[1]
			}
			return a.generate(seed, ticks, output)
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", synthetic.DefaultSeed, "random seed")
	return cmd
}

func (a *app) generate(seed, ticks int64, output string) (err error) {
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return a.fail("unable to create output directory", err)
		}
	}

	file, err := os.Create(output)
	if err != nil {
		return a.fail("unable to create output file", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = a.fail("unable to close output file", cerr)
		}
	}()

	a.logger.Info("generating ticks", zap.Int64("ticks", ticks), zap.Int64("seed", seed))

	written, err := synthetic.NewTickGenerator(seed, ticks).WriteCSV(file)
	if err != nil {
		return a.fail("unable to write ticks", err)
	}

	a.logger.Info("sample data written", zap.String("path", output), zap.Int64("ticks", written))
	return nil
}
