package config

import (
	"fmt"
	"runtime"

	"github.com/kelseyhightower/envconfig"
)

// Config holds everything a batch run needs: where the event table comes
// from, where the augmented table goes, and the tunable feature constants.
type Config struct {
	ServiceEnvironment string `envconfig:"SERVICE_ENVIRONMENT" default:"development"`

	// SourceKind selects the table source/sink pair: "csv" or "clickhouse".
	SourceKind string `envconfig:"SOURCE_KIND" default:"csv"`
	InputPath  string `envconfig:"INPUT_PATH"`
	OutputPath string `envconfig:"OUTPUT_PATH"`

	EngineWorkers int `envconfig:"ENGINE_WORKERS" default:"0"`

	// Bayesian shrinkage priors. Defaults match the documented feature
	// definitions; changing them changes model comparability across runs.
	SmoothingAlpha float64 `envconfig:"SMOOTHING_ALPHA" default:"1"`
	SmoothingBeta  float64 `envconfig:"SMOOTHING_BETA" default:"1"`

	// Time-to-action values beyond the cap are treated as missing.
	TimeToActionCapHours float64 `envconfig:"TIME_TO_ACTION_CAP_HOURS" default:"720"`

	// Spam risk index weights, version-pinned. Must sum to 1 for the index
	// to stay on a rate scale, which is validated at load time.
	RiskWeightSoftBounce  float64 `envconfig:"RISK_WEIGHT_SOFT_BOUNCE" default:"0.30"`
	RiskWeightHardBounce  float64 `envconfig:"RISK_WEIGHT_HARD_BOUNCE" default:"0.40"`
	RiskWeightBlock       float64 `envconfig:"RISK_WEIGHT_BLOCK" default:"0.20"`
	RiskWeightUnsubscribe float64 `envconfig:"RISK_WEIGHT_UNSUBSCRIBE" default:"0.05"`
	RiskWeightComplaint   float64 `envconfig:"RISK_WEIGHT_COMPLAINT" default:"0.05"`

	ClickHouseHost               string `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	ClickHousePort               string `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	ClickHouseDB                 string `envconfig:"CLICKHOUSE_DB" default:"default"`
	ClickHouseUser               string `envconfig:"CLICKHOUSE_USER" default:""`
	ClickHousePassword           string `envconfig:"CLICKHOUSE_PASSWORD" default:""`
	ClickHouseUseTLS             bool   `envconfig:"CLICKHOUSE_USE_TLS" default:"false"`
	ClickHouseMaxOpenConns       int    `envconfig:"CLICKHOUSE_MAX_OPEN_CONNS" default:"5"`
	ClickHouseMaxIdleConns       int    `envconfig:"CLICKHOUSE_MAX_IDLE_CONNS" default:"2"`
	ClickHouseConnMaxLifetimeSec int    `envconfig:"CLICKHOUSE_CONN_MAX_LIFETIME_SEC" default:"3600"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.EngineWorkers <= 0 {
		cfg.EngineWorkers = runtime.NumCPU()
	}

	sum := cfg.RiskWeightSoftBounce + cfg.RiskWeightHardBounce + cfg.RiskWeightBlock +
		cfg.RiskWeightUnsubscribe + cfg.RiskWeightComplaint
	if sum < 0.999 || sum > 1.001 {
		return nil, fmt.Errorf("spam risk weights must sum to 1, got %.4f", sum)
	}

	return &cfg, nil
}
