package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/l0learn"
	"github.com/YuminosukeSato/l0learn/pkg/errors"
	"github.com/YuminosukeSato/l0learn/pkg/log"
	"github.com/YuminosukeSato/l0learn/pkg/telemetry"
	"github.com/YuminosukeSato/l0learn/sparse/penalty"
	"github.com/YuminosukeSato/l0learn/sparse/solver"
)

// fitFlags are shared by fit and cv.
type fitFlags struct {
	xPath      string
	yPath      string
	configPath string
	outPath    string
	loss       string
	penalty    string
	algorithm  string
	nnzStopNum int
}

type rootState struct {
	logLevel string
	trace    string
	shutdown func(context.Context) error
}

func newRootCmd() *cobra.Command {
	st := &rootState{}
	rootCmd := &cobra.Command{
		Use:           "l0learn",
		Short:         "Fit L0-regularized regression paths",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if st.shutdown == nil {
				return nil
			}
			return st.shutdown(context.Background())
		},
	}
	rootCmd.PersistentFlags().StringVar(&st.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&st.trace, "trace", telemetry.ExporterNone, "telemetry exporter: stdout or none")

	rootCmd.AddCommand(newFitCmd(), newCVCmd(), newInspectCmd())
	return rootCmd
}

func (st *rootState) setup(cmd *cobra.Command) error {
	level, ok := log.ParseLevel(st.logLevel)
	if !ok {
		return errors.NewConfigError("log-level", "must be one of debug, info, warn, error", st.logLevel)
	}
	p := log.NewZerologProvider(cmd.ErrOrStderr(), level)
	log.SetProvider(p)
	log.RouteWarnings(p)

	cfg := telemetry.DefaultConfig()
	cfg.TraceExporter = st.trace
	cfg.MetricExporter = st.trace
	cfg.Writer = cmd.ErrOrStderr()
	shutdown, err := telemetry.Init(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	st.shutdown = shutdown
	return nil
}

func (f *fitFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.xPath, "x", "", "CSV file with the design matrix (required)")
	cmd.Flags().StringVar(&f.yPath, "y", "", "CSV file with the response (required)")
	cmd.Flags().StringVar(&f.configPath, "config", "", "YAML or JSON config file")
	cmd.Flags().StringVar(&f.outPath, "out", "", "output file: .l0a archive or .json report (default: JSON to stdout)")
	cmd.Flags().StringVar(&f.loss, "loss", "", "loss: Square, Logistic, SquaredHinge")
	cmd.Flags().StringVar(&f.penalty, "penalty", "", "penalty: L0, L0L1, L0L2")
	cmd.Flags().StringVar(&f.algorithm, "algorithm", "", "algorithm: CD, CDPSI")
	cmd.Flags().IntVar(&f.nnzStopNum, "nnz-stop", 0, "maximum support size")
	_ = cmd.MarkFlagRequired("x")
	_ = cmd.MarkFlagRequired("y")
}

// estimator loads the config file and applies flag overrides.
func (f *fitFlags) estimator(cmd *cobra.Command) (*l0learn.Estimator, error) {
	cfg, err := l0learn.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	opts := []l0learn.Option{l0learn.WithConfig(cfg)}
	if f.loss != "" {
		loss, err := penalty.ParseLoss(f.loss)
		if err != nil {
			return nil, err
		}
		opts = append(opts, l0learn.WithLoss(loss))
	}
	if f.penalty != "" {
		pen, err := penalty.ParsePenalty(f.penalty)
		if err != nil {
			return nil, err
		}
		opts = append(opts, l0learn.WithPenalty(pen))
	}
	if f.algorithm != "" {
		alg, err := solver.ParseAlgorithm(f.algorithm)
		if err != nil {
			return nil, err
		}
		opts = append(opts, l0learn.WithAlgorithm(alg))
	}
	if cmd.Flags().Changed("nnz-stop") {
		opts = append(opts, l0learn.WithNnzStopNum(f.nnzStopNum))
	}
	return l0learn.New(opts...), nil
}

func newFitCmd() *cobra.Command {
	f := &fitFlags{}
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit the regularization path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadDataset(f.xPath, f.yPath)
			if err != nil {
				return err
			}
			est, err := f.estimator(cmd)
			if err != nil {
				return err
			}
			if _, err := est.FitContext(cmd.Context(), ds.X, ds.y); err != nil {
				return err
			}
			return writeResult(cmd, est, ds, f.outPath)
		},
	}
	f.register(cmd)
	return cmd
}

func newCVCmd() *cobra.Command {
	f := &fitFlags{}
	var nfolds int
	var seed uint64
	cmd := &cobra.Command{
		Use:   "cv",
		Short: "Fit the path and cross-validate every grid point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadDataset(f.xPath, f.yPath)
			if err != nil {
				return err
			}
			est, err := f.estimator(cmd)
			if err != nil {
				return err
			}
			if _, _, err := est.CrossValidateContext(cmd.Context(), ds.X, ds.y, nfolds, seed); err != nil {
				return err
			}
			return writeResult(cmd, est, ds, f.outPath)
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&nfolds, "nfolds", 10, "number of folds")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "fold shuffling seed")
	return cmd
}

func newInspectCmd() *cobra.Command {
	var point int
	cmd := &cobra.Command{
		Use:   "inspect <archive.l0a>",
		Short: "Print the contents of a saved path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			est := l0learn.New()
			if err := est.Load(args[0]); err != nil {
				return err
			}
			if point >= 0 {
				w, err := est.Weights(point, nil)
				if err != nil {
					return err
				}
				data, err := w.ToJSON()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			return writeJSON(cmd.OutOrStdout(), newReport(est, nil))
		},
	}
	cmd.Flags().IntVar(&point, "point", -1, "export the weights of one grid point")
	return cmd
}

// writeResult saves an archive for .l0a paths and a JSON report with
// training statistics otherwise.
func writeResult(cmd *cobra.Command, est *l0learn.Estimator, ds *dataset, out string) error {
	if strings.EqualFold(filepath.Ext(out), ".l0a") {
		return est.Save(out)
	}
	rep := newReport(est, ds.features)
	if err := rep.addTrainStats(est, ds); err != nil {
		return err
	}
	if out == "" {
		return writeJSON(cmd.OutOrStdout(), rep)
	}
	file, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "failed to create output file")
	}
	if err := writeJSON(file, rep); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
