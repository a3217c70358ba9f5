package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// ErrInvalid — конфигурация не прошла проверку.
var ErrInvalid = errors.New("invalid config")

// Config — корень конфигурации бриджа (YAML).
type Config struct {
	Tenders       TendersConfig       `yaml:"tenders"`
	SFS           SFSConfig           `yaml:"sfs"`
	Storage       StorageConfig       `yaml:"storage"`
	Queues        QueuesConfig        `yaml:"queues"`
	Bridge        BridgeConfig        `yaml:"bridge"`
	Governor      GovernorConfig      `yaml:"governor"`
	BusinessHours BusinessHoursConfig `yaml:"business_hours"`
}

// TendersConfig — API площадки закупок.
type TendersConfig struct {
	APIHost    string   `yaml:"api_host"`
	APIVersion string   `yaml:"api_version"`
	PrefixPath string   `yaml:"prefix_path"`
	Token      string   `yaml:"token"`
	Timeout    Duration `yaml:"timeout"`
}

// SFSConfig — канал корреспонденции.
type SFSConfig struct {
	BaseURL   string   `yaml:"base_url"`
	User      string   `yaml:"user"`
	Password  string   `yaml:"password"`
	DeptID    int      `yaml:"dept_id"`
	DeptsProc int      `yaml:"depts_proc"`
	CAName    string   `yaml:"ca_name"`
	Cert      string   `yaml:"cert"`
	Timeout   Duration `yaml:"timeout"`
}

// StorageConfig — постоянное хранилище.
type StorageConfig struct {
	// Backend: redis | postgres | mongo | memory.
	Backend  string `yaml:"backend"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`

	// URL — DSN для postgres и mongo.
	URL      string `yaml:"url"`
	Database string `yaml:"database"`

	// TTL — срок жизни отметок обработанных тендеров (0 — бессрочно).
	TTL Duration `yaml:"ttl"`
}

// QueuesConfig — очереди между стадиями.
type QueuesConfig struct {
	// Backend: amqp | memory.
	Backend string `yaml:"backend"`
	AMQPURL string `yaml:"amqp_url"`

	// Capacity — предел очередей в памяти (0 — без предела).
	Capacity int `yaml:"capacity"`

	// PollInterval — пауза basic.get на пустой очереди.
	PollInterval Duration `yaml:"poll_interval"`
}

// BridgeConfig — супервизоры и служебный HTTP.
type BridgeConfig struct {
	// Delay — интервал проверки живости jobs.
	Delay          Duration `yaml:"delay"`
	RetryBudget    int      `yaml:"retry_budget"`
	StopTimeout    Duration `yaml:"stop_timeout"`
	HealthInterval Duration `yaml:"health_interval"`
	MetricsAddr    string   `yaml:"metrics_addr"`
}

// GovernorConfig — адаптивная пауза.
type GovernorConfig struct {
	Floor         Duration `yaml:"floor"`
	Ceiling       Duration `yaml:"ceiling"`
	IncrementStep Duration `yaml:"increment_step"`
	DecrementStep Duration `yaml:"decrement_step"`
}

// BusinessHoursConfig — рабочее окно получателя запросов.
type BusinessHoursConfig struct {
	// Window — cron-выражение минут, входящих в окно.
	Window   string   `yaml:"window"`
	Timezone string   `yaml:"timezone"`
	Holidays []string `yaml:"holidays"`
}

// Duration — time.Duration из YAML-строки ("15s", "5m").
type Duration time.Duration

// UnmarshalYAML реализует yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration возвращает time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	return &Config{
		Tenders: TendersConfig{
			APIHost:    "https://public.api.openprocurement.org",
			APIVersion: "2.3",
			PrefixPath: "tenders",
			Timeout:    Duration(30 * time.Second),
		},
		SFS: SFSConfig{
			DeptID:    1,
			DeptsProc: 1,
			Timeout:   Duration(30 * time.Second),
		},
		Storage: StorageConfig{
			Backend: "redis",
			Host:    "localhost",
			Port:    6379,
			TTL:     Duration(300 * time.Second),
		},
		Queues: QueuesConfig{
			Backend:      "memory",
			PollInterval: Duration(500 * time.Millisecond),
		},
		Bridge: BridgeConfig{
			Delay:          Duration(15 * time.Second),
			RetryBudget:    10,
			StopTimeout:    Duration(30 * time.Second),
			HealthInterval: Duration(10 * time.Second),
			MetricsAddr:    ":8090",
		},
		Governor: GovernorConfig{
			Floor:         0,
			Ceiling:       Duration(5 * time.Minute),
			IncrementStep: Duration(time.Second),
			DecrementStep: Duration(time.Second),
		},
		BusinessHours: BusinessHoursConfig{
			Window:   "* 9-17 * * 1-5",
			Timezone: "Europe/Kiev",
		},
	}
}

// Parse разбирает YAML поверх значений по умолчанию.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Load читает файл (пустой path — только значения по умолчанию),
// применяет переменные окружения и проверяет результат.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv переопределяет значения из окружения:
// TENDERS_API_HOST, TENDERS_TOKEN, SFS_PASSWORD, STORAGE_BACKEND,
// REDIS_HOST, REDIS_PORT, DB_URL, RABBITMQ_URL, METRICS_ADDR.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&c.Tenders.APIHost, "TENDERS_API_HOST")
	setString(&c.Tenders.Token, "TENDERS_TOKEN")
	setString(&c.SFS.Password, "SFS_PASSWORD")
	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.Host, "REDIS_HOST")
	setString(&c.Storage.URL, "DB_URL")
	setString(&c.Bridge.MetricsAddr, "METRICS_ADDR")

	if v := getenv("RABBITMQ_URL"); v != "" {
		c.Queues.Backend = "amqp"
		c.Queues.AMQPURL = v
	}
	if v := getenv("REDIS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: REDIS_PORT %q", ErrInvalid, v)
		}
		c.Storage.Port = port
	}
	return nil
}

// Validate проверяет конфигурацию. Ошибка здесь — единственная
// причина аварийного завершения при старте.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Tenders.APIHost == "" {
		fail("tenders.api_host is required")
	}

	switch c.Storage.Backend {
	case "redis", "memory":
	case "postgres", "mongo":
		if c.Storage.URL == "" {
			fail("storage.url is required for %s", c.Storage.Backend)
		}
	default:
		fail("unknown storage.backend %q", c.Storage.Backend)
	}

	switch c.Queues.Backend {
	case "memory":
	case "amqp":
		if c.Queues.AMQPURL == "" {
			fail("queues.amqp_url is required for amqp")
		}
	default:
		fail("unknown queues.backend %q", c.Queues.Backend)
	}

	if c.Bridge.RetryBudget <= 0 {
		fail("bridge.retry_budget must be positive")
	}
	if c.Governor.Floor < 0 || c.Governor.Ceiling < c.Governor.Floor {
		fail("governor floor %s must be within [0, ceiling %s]",
			c.Governor.Floor.Duration(), c.Governor.Ceiling.Duration())
	}

	if _, err := time.LoadLocation(c.BusinessHours.Timezone); err != nil {
		fail("business_hours.timezone: %v", err)
	}
	for _, day := range c.BusinessHours.Holidays {
		if _, err := time.Parse(time.DateOnly, day); err != nil {
			fail("business_hours.holidays: %q is not YYYY-MM-DD", day)
		}
	}

	return errors.Join(errs...)
}
