package sgd

// Config mirrors the option surface for setup from a config file.  Zero
// fields keep the defaults.
type Config struct {
	Iterations int       `yaml:"iterations"`
	LearnRate  float64   `yaml:"learning_rate"`
	LearnRates []float64 `yaml:"learning_rates"`
	Momentum   *float64  `yaml:"momentum"`
	BatchSize  int       `yaml:"batch_size"`
	SelfPaced  bool      `yaml:"self_paced"`
	Messages   int       `yaml:"messages"`
}

// Options converts c into the options it sets.  The iteration count is
// passed to New separately; IterationCount applies its default.
func (c Config) Options() []Option {
	var opts []Option
	if c.LearnRate != 0 {
		opts = append(opts, LearnRate(c.LearnRate))
	}
	if c.LearnRates != nil {
		opts = append(opts, LearnRates(c.LearnRates))
	}
	if c.Momentum != nil {
		opts = append(opts, Momentum(*c.Momentum))
	}
	if c.BatchSize != 0 {
		opts = append(opts, BatchSize(c.BatchSize))
	}
	if c.SelfPaced {
		opts = append(opts, SelfPaced(true))
	}
	if c.Messages != 0 {
		opts = append(opts, Messages(c.Messages, nil))
	}
	return opts
}

func (c Config) IterationCount() int {
	if c.Iterations == 0 {
		return DefaultIterations
	}
	return c.Iterations
}
