package config

const (
	defaultStateDir             = "~/.local/share/cpsnap"
	defaultLogDir               = "~/.local/share/cpsnap/logs"
	defaultAlgorithm            = "sha256"
	defaultOnError              = OnErrorAbort
	defaultMaxDepth             = 512
	defaultWatchIntervalSeconds = 5
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"

	maxAllowedDepth = 4096
)

// Failure policies accepted by snapshot.on_error.
const (
	OnErrorAbort = "abort"
	OnErrorSkip  = "skip"
)

// Algorithms lists the per-file hash names snapshot.algorithm accepts.
var Algorithms = []string{"sha256", "xxh3", "blake3"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Snapshot: Snapshot{
			Algorithm: defaultAlgorithm,
			OnError:   defaultOnError,
			MaxDepth:  defaultMaxDepth,
		},
		Watch: Watch{
			IntervalSeconds: defaultWatchIntervalSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
