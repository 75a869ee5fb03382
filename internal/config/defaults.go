package config

const (
	defaultStateDir          = "~/.local/share/clippy/state"
	defaultLogDir            = "~/.local/share/clippy/logs"
	defaultDownloadDir       = "~/Videos/clippy"
	defaultBackendBaseURL    = "http://127.0.0.1:7624"
	defaultBackendTimeout    = 30
	defaultAwaitPollInterval = 300
	defaultAwaitTimeout      = 3600
	defaultNotifyWindow      = 250
	defaultDownloadQuality   = "best"
	defaultAnalysisProvider  = "ollama"
	defaultAnalysisModel     = "llama3.1"
	defaultWhisperModel      = "base"
	defaultWhisperLanguage   = "en"
	defaultNtfyTimeout       = 10
	defaultLogLevel          = "info"
	defaultLogFormat         = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
			DownloadDir: defaultDownloadDir,
		},
		Backend: Backend{
			BaseURL:        defaultBackendBaseURL,
			RequestTimeout: defaultBackendTimeout,
		},
		Workflow: Workflow{
			AwaitPollInterval: defaultAwaitPollInterval,
			AwaitTimeout:      defaultAwaitTimeout,
			NotifyWindow:      defaultNotifyWindow,
		},
		Downloads: Downloads{
			Quality: defaultDownloadQuality,
		},
		Analysis: Analysis{
			Provider: defaultAnalysisProvider,
			Model:    defaultAnalysisModel,
		},
		Transcription: Transcription{
			Model:    defaultWhisperModel,
			Language: defaultWhisperLanguage,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Completion:     true,
			Errors:         true,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
