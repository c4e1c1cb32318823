package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/royalerun/royale/internal/analysis"
	"github.com/royalerun/royale/internal/dispatch"
	"github.com/royalerun/royale/internal/logx"
	"github.com/royalerun/royale/internal/trial"
	"github.com/spf13/cobra"
)

var (
	flagConfig string

	flagDirs     []string
	flagFiles    []string
	flagInline   []string
	flagChdir    string
	flagExec     []string
	flagRepeat   int
	flagServe    string
	flagRegister string
	flagRemote   string
	flagBatch    bool
	flagInput    string
	flagAnalysis string
	flagPretty   string
	flagLogLevel int
)

// NewRootCmd builds the royale coordinator command: the flag surface of
// §6, plus the ambient report/list subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "royale",
		Short: "Distributed experiment-execution coordinator",
		RunE:  runRoyale,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "royale.yaml", "coordinator settings file path")

	flags := root.Flags()
	flags.StringArrayVarP(&flagDirs, "directory", "d", nil, "load every *.experiment.json file in DIR (repeatable)")
	flags.StringArrayVarP(&flagFiles, "file", "f", nil, "load one experiment JSON file (repeatable)")
	flags.StringArrayVarP(&flagInline, "json", "j", nil, "load one experiment from inline JSON (repeatable)")
	flags.StringVarP(&flagChdir, "cd", "C", "", "chdir before loading")
	flags.StringArrayVarP(&flagExec, "exec", "x", nil, "run experiment NAME (repeatable)")
	flags.IntVarP(&flagRepeat, "repeat", "R", 1, "repeat each -x run N times")
	flags.StringVarP(&flagServe, "serve", "s", "", "listen for workers/clients on host:port")
	flags.StringVarP(&flagRegister, "register", "g", "", "register with upstream as a worker on host:port")
	flags.StringVarP(&flagRemote, "remote", "r", "", "issue trials via upstream coordinator on host:port")
	flags.BoolVarP(&flagBatch, "batch", "B", false, "run -x as batches (requires -r)")
	flags.StringVarP(&flagInput, "input", "i", "", "skip execution, read a []Trial results JSON from FILE (or - for stdin)")
	flags.StringVarP(&flagAnalysis, "analysis", "A", "", "run analysis (logistic_regression/logreg) over results")
	flags.StringVarP(&flagPretty, "pretty", "P", "", "pretty-print JSON with N-space indent (implicit 2)")
	flags.Lookup("pretty").NoOptDefVal = "2"
	flags.IntVarP(&flagLogLevel, "log", "l", 3, "log level 0 (off) through 6 (trace)")

	root.AddCommand(newListCmd())
	root.AddCommand(newReportCmd())
	return root
}

func runRoyale(cmd *cobra.Command, args []string) error {
	logx.SetLevel(flagLogLevel)

	if flagBatch && flagRemote == "" {
		return fmt.Errorf("royale: --batch requires --remote")
	}
	if flagChdir != "" {
		if err := os.Chdir(flagChdir); err != nil {
			return fmt.Errorf("royale: chdir %s: %w", flagChdir, err)
		}
	}

	d := dispatch.New()
	exps, err := loadExperiments(flagDirs, flagFiles, flagInline)
	if err != nil {
		return err
	}
	for _, exp := range exps {
		if err := d.AddExperiment(exp); err != nil {
			return fmt.Errorf("royale: loading experiment %q: %w", exp.Name(), err)
		}
	}

	ctx := context.Background()

	if flagRemote != "" {
		conn, err := d.ConnectTo(ctx, flagRemote)
		if err != nil {
			return fmt.Errorf("royale: connecting to remote %s: %w", flagRemote, err)
		}
		d.SetRemote(conn)
	}

	if flagServe != "" {
		listener, err := d.LaunchListener(flagServe)
		if err != nil {
			return fmt.Errorf("royale: serving on %s: %w", flagServe, err)
		}
		defer listener.Close()
		logx.Infof("serving on %s", flagServe)
	}

	if flagRegister != "" {
		logx.Infof("registering with %s", flagRegister)
		return d.RegisterWith(ctx, flagRegister)
	}

	var trials []trial.Trial
	switch {
	case flagInput != "":
		trials, err = readTrialsFromInput(flagInput)
		if err != nil {
			return err
		}
	case len(flagExec) > 0:
		repeat := flagRepeat
		if repeat < 1 {
			repeat = 1
		}
		for r := 0; r < repeat; r++ {
			for _, name := range flagExec {
				if flagBatch {
					got, err := d.RunBatch(ctx, name)
					if err != nil {
						return fmt.Errorf("royale: running batch %q: %w", name, err)
					}
					trials = append(trials, got...)
				} else {
					got, err := d.RunTrial(ctx, name, nil)
					if err != nil {
						return fmt.Errorf("royale: running trial %q: %w", name, err)
					}
					trials = append(trials, got)
				}
			}
		}
	case flagServe != "":
		waitForSignal()
		return nil
	default:
		return cmd.Help()
	}

	return emitResults(cmd.OutOrStdout(), trials, flagAnalysis, flagPretty, cmd.Flags().Changed("pretty"))
}

func waitForSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
}

func readTrialsFromInput(path string) ([]trial.Trial, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("royale: opening input %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	var trials []trial.Trial
	if err := json.NewDecoder(r).Decode(&trials); err != nil {
		return nil, fmt.Errorf("royale: parsing input: %w", err)
	}
	return trials, nil
}

func emitResults(w io.Writer, trials []trial.Trial, analysisName, pretty string, prettySet bool) error {
	var payload any = trials
	if analysisName != "" {
		status, err := analysis.Analyze(analysisName, trials)
		if err != nil {
			return fmt.Errorf("royale: running analysis %q: %w", analysisName, err)
		}
		payload = status
	}

	enc := json.NewEncoder(w)
	if prettySet {
		n := 2
		if pretty != "" {
			if v, err := strconv.Atoi(pretty); err == nil {
				n = v
			}
		}
		enc.SetIndent("", strings.Repeat(" ", n))
	}
	return enc.Encode(payload)
}
