package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			Timezone: "Asia/Kolkata",
		},
		Input: InputConfig{
			SearchFile:  "search.jsonl",
			DetailFile:  "detail.jsonl",
			BookingFile: "etl.jsonl",
		},
		Pipeline: PipelineConfig{
			Workers: 4,
			Decay:   "current",
		},
		Storage: StorageConfig{
			Path:              "~/.config/rankprep",
			SQLiteFile:        "rankprep.db",
			SQLiteJournalMode: "wal",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8731,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}
