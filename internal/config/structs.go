//nolint:lll
package config

// Config represents the complete configuration for barscan.
// It includes settings for all commands (detect, read, pdf, serve) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Region detection
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector" json:"detector"`

	// Barcode decoding and fallback
	Reader ReaderConfig `mapstructure:"reader" yaml:"reader" json:"reader"`

	// PDF handling
	PDF PDFConfig `mapstructure:"pdf" yaml:"pdf" json:"pdf"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// DetectorConfig contains region detection settings.
type DetectorConfig struct {
	QuietDistance float64 `mapstructure:"quiet_distance" yaml:"quiet_distance" json:"quiet_distance"`
	MinArea       float64 `mapstructure:"min_area" yaml:"min_area" json:"min_area"`
	Fast          bool    `mapstructure:"fast" yaml:"fast" json:"fast"`
	Threshold     int     `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	Merge         string  `mapstructure:"merge" yaml:"merge" json:"merge"`
}

// ReaderConfig contains decoding settings.
type ReaderConfig struct {
	Backend       string   `mapstructure:"backend" yaml:"backend" json:"backend"`
	Formats       []string `mapstructure:"formats" yaml:"formats" json:"formats"`
	TryHarder     bool     `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
	Fallback      bool     `mapstructure:"fallback" yaml:"fallback" json:"fallback"`
	FallbackFast  bool     `mapstructure:"fallback_fast" yaml:"fallback_fast" json:"fallback_fast"`
	Workers       int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	RegionMargin  float64  `mapstructure:"region_margin" yaml:"region_margin" json:"region_margin"`
	RegionPadding int      `mapstructure:"region_padding" yaml:"region_padding" json:"region_padding"`
}

// PDFConfig contains PDF processing settings.
type PDFConfig struct {
	Pages          string `mapstructure:"pages" yaml:"pages" json:"pages"`
	Workers        int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	AllowPasswords bool   `mapstructure:"allow_passwords" yaml:"allow_passwords" json:"allow_passwords"`
	PasswordPrompt bool   `mapstructure:"password_prompt" yaml:"password_prompt" json:"password_prompt"`
	UserPassword   string `mapstructure:"user_password" yaml:"user_password,omitempty" json:"-"`
	OwnerPassword  string `mapstructure:"owner_password" yaml:"owner_password,omitempty" json:"-"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format       string `mapstructure:"format" yaml:"format" json:"format"`
	File         string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayDir   string `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
	OverlayColor string `mapstructure:"overlay_color" yaml:"overlay_color" json:"overlay_color"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// Rate limiting; zero disables a limit
	RateLimitEnabled  bool `mapstructure:"rate_limit_enabled" yaml:"rate_limit_enabled" json:"rate_limit_enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int  `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDayMB   int  `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}
