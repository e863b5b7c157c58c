package config

// validate checks that the final merged [StructuredConfig] satisfies the
// invariants the server depends on at startup.
func (cfg *StructuredConfig) validate() error {
	if cfg.App.TokenSignKey == "" {
		return ErrInvalidAppConfigs
	}

	if cfg.App.MaxLoginAttempts <= 0 || cfg.App.LockoutDuration <= 0 {
		return ErrInvalidAppConfigs
	}

	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Server.HTTPAddress == "" || cfg.Server.RequestTimeout == 0 {
		return ErrInvalidServerConfigs
	}

	if cfg.Workers.RetentionWindow <= 0 || cfg.Workers.SweepInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	return nil
}
