package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendSQLite
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./products.db"
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.Strategy == "" {
		cfg.Search.Strategy = StrategySequential
	}
	if cfg.Search.Concurrency <= 0 {
		cfg.Search.Concurrency = 8
	}
	if cfg.Search.CacheSize == 0 {
		cfg.Search.CacheSize = 4096
	}
	// Watch.Enabled defaults to true when unset (nil).
	if cfg.Watch.Enabled == nil {
		t := true
		cfg.Watch.Enabled = &t
	}
}
