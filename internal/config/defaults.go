package config

const (
	defaultWorkDir              = "~/.local/share/octpack/work"
	defaultOutputDir            = "~/octpack"
	defaultLogDir               = "~/.local/share/octpack/logs"
	defaultOCTGNGitURL          = "https://github.com/GeckoTH/Lord-of-the-Rings.git"
	defaultOCTGNBranch          = "master"
	defaultOCTGNGameID          = "a21af4e8-be4b-4cda-a6b6-534f9717391f"
	defaultHOBBaseURL           = "http://hallofbeorn.com"
	defaultHOBTimeoutSeconds    = 30
	defaultHOBUserAgent         = "octpack/dev"
	defaultSetDistanceThreshold = 5
	defaultMatchingWorkers      = 8
	defaultDownloadConcurrency  = 8
	defaultDownloadAttempts     = 3
	defaultDownloadTimeout      = 60
	defaultCatalogCacheTTLHours = 24
	defaultNtfyTimeoutSeconds   = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir:  defaultCacheDir(),
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		OCTGN: OCTGN{
			GitURL: defaultOCTGNGitURL,
			Branch: defaultOCTGNBranch,
			GameID: defaultOCTGNGameID,
		},
		HallOfBeorn: HallOfBeorn{
			BaseURL:        defaultHOBBaseURL,
			TimeoutSeconds: defaultHOBTimeoutSeconds,
			UserAgent:      defaultHOBUserAgent,
		},
		Matching: Matching{
			SetDistanceThreshold: defaultSetDistanceThreshold,
			Workers:              defaultMatchingWorkers,
		},
		Downloads: Downloads{
			Concurrency:    defaultDownloadConcurrency,
			Attempts:       defaultDownloadAttempts,
			TimeoutSeconds: defaultDownloadTimeout,
		},
		CatalogCache: CatalogCache{
			Enabled:  true,
			TTLHours: defaultCatalogCacheTTLHours,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
