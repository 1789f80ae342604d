package config

const (
	defaultDataDir          = "~/.local/share/oslomc/ensembles"
	defaultLogDir           = "~/.local/share/oslomc/logs"
	defaultEnsembleNumber   = 100
	defaultEnsembleMethod   = "poisson"
	defaultEnsembleWorkers  = 1
	defaultUnfoldIterations = 33
	defaultFirstGenRounds   = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Ensemble: Ensemble{
			Number:  defaultEnsembleNumber,
			Method:  defaultEnsembleMethod,
			Workers: defaultEnsembleWorkers,
		},
		Unfolding: Unfolding{
			Iterations: defaultUnfoldIterations,
		},
		FirstGeneration: FirstGeneration{
			Rounds: defaultFirstGenRounds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
