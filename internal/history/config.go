package history

import "codeberg.org/mutker/wthud/internal/errors"

const (
	defaultDirPerm   = 0o755
	defaultFilePerm  = 0o644
	defaultQueueSize = 16
	backupDirName    = "backups"
)

type Config struct {
	// CSVPath is the flat lap log; empty disables it.
	CSVPath string
	// DBPath is the SQLite lap store; empty disables it.
	DBPath    string
	QueueSize int
}

func DefaultConfig() Config {
	return Config{
		CSVPath:   "lap_history.csv",
		QueueSize: defaultQueueSize,
	}
}

func (c Config) Validate() error {
	if c.QueueSize < 0 {
		return errors.New().WithData(ErrInvalidConfig, "negative queue size")
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
