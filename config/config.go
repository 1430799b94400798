package config

import (
	"fmt"
	"os"
	"time"

	"kismarket/kis"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration. The kis.api block mirrors
// the vendor client settings; everything else belongs to the outer surfaces.
type Config struct {
	Log string `yaml:"log"`

	App struct {
		Port int `yaml:"port"`
	} `yaml:"app"`

	Collector struct {
		Enabled bool     `yaml:"enabled"`
		Codes   []string `yaml:"codes"`
	} `yaml:"collector"`

	Kis struct {
		Api KisApi `yaml:"api"`
	} `yaml:"kis"`
}

type KisApi struct {
	AppKey        string `yaml:"appKey" validate:"required"`
	AppSecret     string `yaml:"appSecret" validate:"required"`
	AccountNumber string `yaml:"accountNumber"`
	Environment   string `yaml:"environment" validate:"omitempty,oneof=real mock"`
	BaseUrl       string `yaml:"baseUrl"`
	WsUrl         string `yaml:"wsUrl"`

	Timeout struct {
		ConnectionTimeoutMs int `yaml:"connectionTimeoutMs" validate:"omitempty,gt=0"`
		ReadTimeoutMs       int `yaml:"readTimeoutMs" validate:"omitempty,gt=0"`
		WriteTimeoutMs      int `yaml:"writeTimeoutMs" validate:"omitempty,gt=0"`
	} `yaml:"timeout"`

	RateLimit struct {
		RequestsPerMinute        int `yaml:"requestsPerMinute" validate:"omitempty,gt=0"`
		RequestsPerDay           int `yaml:"requestsPerDay" validate:"omitempty,gt=0"`
		MaxConcurrentConnections int `yaml:"maxConcurrentConnections" validate:"omitempty,gt=0"`
	} `yaml:"rateLimit"`
}

// NewConfig reads and validates the yaml file at path. 필수 키 누락은
// 기동 시점에 Fatal로 반환.
func NewConfig(path string) (*Config, error) {

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s\n%w", path, err)
	}
	return parse(raw)
}

func parse(raw []byte) (*Config, error) {

	conf := &Config{}
	if err := yaml.Unmarshal(raw, conf); err != nil {
		return nil, fmt.Errorf("failed to parse config\n%w", err)
	}

	if err := validator.New().Struct(&conf.Kis.Api); err != nil {
		return nil, fmt.Errorf("kis: fatal: invalid configuration\n%w", err)
	}

	if conf.Log == "" {
		conf.Log = "info"
	}
	if conf.App.Port == 0 {
		conf.App.Port = 8080
	}
	if len(conf.Collector.Codes) == 0 {
		// 기본 수집 대상: 삼성전자, SK하이닉스, NAVER, POSCO홀딩스, 카카오
		conf.Collector.Codes = []string{"005930", "000660", "035420", "005490", "035720"}
	}
	return conf, nil
}

func (c *Config) LogLevel() (zerolog.Level, error) {

	level, err := zerolog.ParseLevel(c.Log)
	if err != nil {
		return zerolog.InfoLevel, err // Default는 Info 레벨
	}
	return level, nil
}

// KisConfig maps the kis.api block to the client configuration.
func (c *Config) KisConfig() *kis.Config {

	api := c.Kis.Api
	return &kis.Config{
		AppKey:        api.AppKey,
		AppSecret:     api.AppSecret,
		AccountNumber: api.AccountNumber,
		Env:           kis.Environment(api.Environment),
		BaseURL:       api.BaseUrl,
		WsURL:         api.WsUrl,
		RateLimit: kis.RateLimitConfig{
			RequestsPerMinute: api.RateLimit.RequestsPerMinute,
			RequestsPerDay:    api.RateLimit.RequestsPerDay,
			MaxConcurrent:     api.RateLimit.MaxConcurrentConnections,
		},
		Timeout: kis.TimeoutConfig{
			Connect: time.Duration(api.Timeout.ConnectionTimeoutMs) * time.Millisecond,
			Read:    time.Duration(api.Timeout.ReadTimeoutMs) * time.Millisecond,
			Write:   time.Duration(api.Timeout.WriteTimeoutMs) * time.Millisecond,
		},
	}
}
