package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// 바이낸스 API 설정
	Binance struct {
		APIKey     string `envconfig:"BINANCE_API_KEY" required:"true"`
		SecretKey  string `envconfig:"BINANCE_SECRET_KEY" required:"true"`
		UseTestnet bool   `envconfig:"USE_TESTNET" default:"false"`
	}

	// 디스코드 웹훅 설정
	Discord struct {
		TradeWebhook string `envconfig:"DISCORD_TRADE_WEBHOOK" required:"true"`
		ErrorWebhook string `envconfig:"DISCORD_ERROR_WEBHOOK" required:"true"`
		InfoWebhook  string `envconfig:"DISCORD_INFO_WEBHOOK" required:"true"`
	}

	// 거래 설정
	Trading struct {
		Symbol     string  `envconfig:"SYMBOL" default:"BTCUSDT"`
		RiskAmount float64 `envconfig:"RISK_AMOUNT" default:"1.0"`
		Leverage   int     `envconfig:"LEVERAGE" default:"25"`
	}

	// 리스크 관리 설정
	Risk struct {
		MaintMarginRate    float64 `envconfig:"MAINT_MARGIN_RATE" default:"0.005"`
		SafetyFactor       float64 `envconfig:"SAFETY_FACTOR" default:"0.90"`
		LiqSafetyBuffer    float64 `envconfig:"LIQ_SAFETY_BUFFER" default:"0.005"`
		LiqDangerDistance  float64 `envconfig:"LIQ_DANGER_DISTANCE" default:"100"`
		LiqWarningDistance float64 `envconfig:"LIQ_WARNING_DISTANCE" default:"300"`
		AutoAdjustLeverage bool    `envconfig:"AUTO_ADJUST_LEVERAGE" default:"true"`
		MaxRiskMultiplier  float64 `envconfig:"MAX_RISK_MULTIPLIER" default:"2.0"`
	}

	// PnL 검증 설정
	PnL struct {
		Tolerance     float64       `envconfig:"PNL_TOLERANCE" default:"0.10"`
		MaxIterations int           `envconfig:"PNL_MAX_ITERATIONS" default:"2"`
		ReadTimeout   time.Duration `envconfig:"PNL_READ_TIMEOUT" default:"3s"`
	}

	// 주문 생명주기 설정
	Order struct {
		AutoRetryUnfilled bool          `envconfig:"AUTO_RETRY_UNFILLED" default:"true"`
		UnfilledWaitTime  time.Duration `envconfig:"UNFILLED_WAIT_TIME" default:"30s"`
		MaxEditAttempts   int           `envconfig:"MAX_EDIT_ATTEMPTS" default:"10"`
		EntryOffset       float64       `envconfig:"ENTRY_OFFSET" default:"12.0"`
		PollInterval      time.Duration `envconfig:"POLL_INTERVAL" default:"500ms"`
	}

	// 애플리케이션 설정
	App struct {
		TickerInterval time.Duration `envconfig:"TICKER_INTERVAL" default:"500ms"`
		MetricsAddr    string        `envconfig:"METRICS_ADDR" default:":9090"`
	}
}

// ValidateConfig는 설정이 유효한지 확인합니다.
func ValidateConfig(cfg *Config) error {
	if cfg.Trading.Leverage < 1 || cfg.Trading.Leverage > 125 {
		return fmt.Errorf("레버리지는 1 이상 125 이하이어야 합니다")
	}

	if cfg.Trading.RiskAmount <= 0 {
		return fmt.Errorf("RISK_AMOUNT는 0보다 커야 합니다")
	}

	if cfg.Risk.SafetyFactor <= 0 || cfg.Risk.SafetyFactor > 1 {
		return fmt.Errorf("SAFETY_FACTOR는 0 초과 1 이하이어야 합니다")
	}

	if cfg.Risk.MaxRiskMultiplier < 1 {
		return fmt.Errorf("MAX_RISK_MULTIPLIER는 1 이상이어야 합니다")
	}

	if cfg.PnL.Tolerance <= 0 {
		return fmt.Errorf("PNL_TOLERANCE는 0보다 커야 합니다")
	}

	if cfg.PnL.MaxIterations < 0 {
		return fmt.Errorf("PNL_MAX_ITERATIONS는 음수일 수 없습니다")
	}

	if cfg.Order.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("POLL_INTERVAL은 100ms 이상이어야 합니다")
	}

	if cfg.Order.UnfilledWaitTime < 1*time.Second {
		return fmt.Errorf("UNFILLED_WAIT_TIME은 1초 이상이어야 합니다")
	}

	return nil
}

// LoadConfig는 환경변수에서 설정을 로드합니다.
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (없어도 환경변수만으로 동작 가능)
	if err := godotenv.Load(); err != nil {
		fmt.Println(".env 파일을 찾을 수 없습니다. 환경변수를 직접 사용합니다.")
	}

	var cfg Config
	// 환경변수를 구조체로 파싱
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("환경변수 처리 실패: %w", err)
	}

	// 설정값 검증
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("설정값 검증 실패: %w", err)
	}

	return &cfg, nil
}
