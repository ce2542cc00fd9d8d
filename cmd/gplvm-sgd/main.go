package main

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"

	"github.com/rwcarlsen/gpopt"
	"github.com/rwcarlsen/gpopt/bench"
	"github.com/rwcarlsen/gpopt/gplvm"
	"github.com/rwcarlsen/gpopt/sgd"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

var (
	cfgPath    string
	dbPath     string
	setName    string
	seed       int64
	verbose    bool
	printEvals bool
	cfg        sgd.Config
)

var rootCmd = &cobra.Command{
	Use:   "gplvm-sgd",
	Short: "Train a GP latent variable model on a synthetic data set with SGD",
	RunE:  run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfgPath, "config", "", "yaml file with optimizer settings (flags override it)")
	f.StringVar(&dbPath, "db", "", "sqlite file to record the loss trace in")
	f.StringVar(&setName, "set", "Linear-30x6", "data set name (see the list command)")
	f.Int64Var(&seed, "seed", 1, "random seed")
	f.BoolVar(&verbose, "verbose", false, "debug logging")
	f.BoolVar(&printEvals, "print-evals", false, "print every objective evaluation")
	f.IntVar(&cfg.Iterations, "iter", sgd.DefaultIterations, "number of iterations")
	f.Float64Var(&cfg.LearnRate, "lr", sgd.DefaultLearnRate, "learning rate")
	f.IntVar(&cfg.BatchSize, "batch", sgd.DefaultBatchSize, "number of feature groups per iteration")
	f.BoolVar(&cfg.SelfPaced, "self-paced", false, "order features by last iteration's likelihood")
	f.IntVar(&cfg.Messages, "messages", sgd.Summary, "progress output level (0, 1 or 2)")
	f.Float64("momentum", sgd.DefaultMomentum, "momentum coefficient in [0,1)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available data sets",
	Run: func(cmd *cobra.Command, args []string) {
		for _, s := range bench.AllSets {
			fmt.Println(s.Name())
		}
	},
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfgPath != "" {
		if err := loadConfig(cmd, cfgPath); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("momentum") || cfg.Momentum == nil {
		m, _ := cmd.Flags().GetFloat64("momentum")
		cfg.Momentum = &m
	}

	set, err := findSet(setName)
	if err != nil {
		return err
	}
	gpopt.Rand = rand.New(rand.NewSource(seed))

	opts := append(cfg.Options(), sgd.Logger(logger))
	if dbPath != "" {
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		opts = append(opts, sgd.DB(db))
	}

	_, Y := set.Generate(gpopt.Rand)
	var m gpopt.Model = gplvm.New(Y, set.LatentDim())
	if printEvals {
		m = gpopt.NewObjectivePrinter(m)
	}

	o, err := sgd.New(m, cfg.IterationCount(), opts...)
	if err != nil {
		return err
	}
	logger.Info("starting", zap.String("set", set.Name()), zap.Int("iterations", o.Iterations))
	if err := o.Opt(); err != nil {
		return err
	}
	fmt.Print(o)
	return nil
}

// loadConfig reads path into cfg without clobbering values set by flags.
func loadConfig(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// keys missing from the file keep their current value
	file := cfg
	file.Momentum = nil
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("config %v: %w", path, err)
	}

	flags := cmd.Flags()
	if !flags.Changed("iter") {
		cfg.Iterations = file.Iterations
	}
	if !flags.Changed("lr") {
		cfg.LearnRate = file.LearnRate
	}
	if !flags.Changed("batch") {
		cfg.BatchSize = file.BatchSize
	}
	if !flags.Changed("self-paced") {
		cfg.SelfPaced = file.SelfPaced
	}
	if !flags.Changed("messages") {
		cfg.Messages = file.Messages
	}
	if !flags.Changed("momentum") && file.Momentum != nil {
		cfg.Momentum = file.Momentum
	}
	cfg.LearnRates = file.LearnRates
	return nil
}

func findSet(name string) (bench.Set, error) {
	for _, s := range bench.AllSets {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unknown data set %q", name)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return c.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
