// Package config — конфигурация ADWS.
//
// Источники в порядке приоритета: флаги (через viper.BindPFlag),
// переменные окружения ADWS_*, файл конфигурации, значения по умолчанию.
// Переменные DB_URL, RABBITMQ_URL, LOG_LEVEL, LOG_FORMAT, API_PORT
// поддерживаются как запасные имена.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix — префикс переменных окружения.
const EnvPrefix = "ADWS"

// ErrInvalidConfig — конфигурация не прошла валидацию.
var ErrInvalidConfig = errors.New("invalid config")

// Config — полная конфигурация ADWS.
type Config struct {
	Workflows WorkflowsConfig `mapstructure:"workflows"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Database  DatabaseConfig  `mapstructure:"database"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	API       APIConfig       `mapstructure:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	// Schedules — периодическая постановка команд в очередь (adws-worker).
	Schedules []ScheduleConfig `mapstructure:"schedules"`
}

// WorkflowsConfig — где искать определения workflow.
type WorkflowsConfig struct {
	// Dir — директория YAML-определений; пусто — только встроенные.
	Dir string `mapstructure:"dir"`
}

// TrackerConfig — CLI трекера задач.
type TrackerConfig struct {
	Binary      string `mapstructure:"binary"`
	Dir         string `mapstructure:"dir"`
	TimeoutSec  int    `mapstructure:"timeout_sec"`
	CloseReason string `mapstructure:"close_reason"`
}

// Timeout возвращает таймаут команды трекера.
func (c TrackerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// AgentConfig — CLI coding-агента.
type AgentConfig struct {
	Binary     string `mapstructure:"binary"`
	Model      string `mapstructure:"model"`
	TimeoutMin int    `mapstructure:"timeout_min"`
}

// Timeout возвращает таймаут одного вызова агента.
func (c AgentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMin) * time.Minute
}

// ExecutorConfig — выполнение шагов.
type ExecutorConfig struct {
	// Shell — интерпретатор shell-шагов.
	Shell string `mapstructure:"shell"`

	// Dir — рабочая директория шагов (корень проекта).
	Dir string `mapstructure:"dir"`
}

// DatabaseConfig — история run в PostgreSQL.
type DatabaseConfig struct {
	// URL — DSN; пусто — история не пишется.
	URL string `mapstructure:"url"`

	// MaxConns — размер пула соединений (0 — значение по умолчанию пула).
	MaxConns int `mapstructure:"max_conns"`
}

// RabbitMQConfig — события и очередь диспетчеризации.
type RabbitMQConfig struct {
	// URL — адрес брокера; пусто — события не публикуются.
	URL string `mapstructure:"url"`

	// Prefetch — сколько сообщений worker берёт одновременно.
	Prefetch int `mapstructure:"prefetch"`
}

// APIConfig — HTTP сервер worker'а.
type APIConfig struct {
	Port int `mapstructure:"port"`
}

// Addr возвращает адрес для net/http.
func (c APIConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// LoggingConfig — логирование.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ScheduleConfig — одна запись расписания.
//
//	schedules:
//	  - name: nightly-verify
//	    cron: "0 3 * * *"
//	    timezone: Europe/Moscow
//	    command: /verify
type ScheduleConfig struct {
	Name     string         `mapstructure:"name"`
	Cron     string         `mapstructure:"cron"`
	Timezone string         `mapstructure:"timezone"`
	Command  string         `mapstructure:"command"`
	Workflow string         `mapstructure:"workflow"`
	IssueID  string         `mapstructure:"issue_id"`
	Inputs   map[string]any `mapstructure:"inputs"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	return &Config{
		Tracker: TrackerConfig{
			Binary:      "bd",
			TimeoutSec:  30,
			CloseReason: "Completed by ADWS",
		},
		Agent: AgentConfig{
			Binary:     "claude",
			TimeoutMin: 30,
		},
		Executor: ExecutorConfig{
			Shell: "sh",
		},
		RabbitMQ: RabbitMQConfig{
			Prefetch: 1,
		},
		API: APIConfig{
			Port: 8082,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "json",
		},
	}
}

// SetDefaults регистрирует значения по умолчанию в v.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("workflows.dir", d.Workflows.Dir)

	v.SetDefault("tracker.binary", d.Tracker.Binary)
	v.SetDefault("tracker.dir", d.Tracker.Dir)
	v.SetDefault("tracker.timeout_sec", d.Tracker.TimeoutSec)
	v.SetDefault("tracker.close_reason", d.Tracker.CloseReason)

	v.SetDefault("agent.binary", d.Agent.Binary)
	v.SetDefault("agent.model", d.Agent.Model)
	v.SetDefault("agent.timeout_min", d.Agent.TimeoutMin)

	v.SetDefault("executor.shell", d.Executor.Shell)
	v.SetDefault("executor.dir", d.Executor.Dir)

	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("database.max_conns", d.Database.MaxConns)
	v.SetDefault("rabbitmq.url", d.RabbitMQ.URL)
	v.SetDefault("rabbitmq.prefetch", d.RabbitMQ.Prefetch)
	v.SetDefault("api.port", d.API.Port)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// legacyEnv — запасные имена переменных окружения.
var legacyEnv = map[string]string{
	"database.url":   "DB_URL",
	"rabbitmq.url":   "RABBITMQ_URL",
	"logging.level":  "LOG_LEVEL",
	"logging.format": "LOG_FORMAT",
	"api.port":       "API_PORT",
}

// New создаёт viper с дефолтами, окружением и файлом конфигурации.
// cfgFile может быть пустым: тогда ищется adws.yaml в текущей директории
// и config.yaml в ConfigDir(). Отсутствие файла не ошибка.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return v, nil
	}

	v.SetConfigName("adws")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err == nil {
		return v, nil
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if _, err := os.Stat(ConfigFile()); err == nil {
		v.SetConfigFile(ConfigFile())
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", ConfigFile(), err)
		}
	}
	return v, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound)
}

// Load читает конфигурацию из v и валидирует её.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет значения конфигурации.
func (c *Config) Validate() error {
	var errs []error

	if c.Tracker.Binary == "" {
		errs = append(errs, errors.New("tracker.binary is required"))
	}
	if c.Tracker.TimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("tracker.timeout_sec must be positive, got %d", c.Tracker.TimeoutSec))
	}
	if c.Agent.Binary == "" {
		errs = append(errs, errors.New("agent.binary is required"))
	}
	if c.Agent.TimeoutMin <= 0 {
		errs = append(errs, fmt.Errorf("agent.timeout_min must be positive, got %d", c.Agent.TimeoutMin))
	}
	if c.Executor.Shell == "" {
		errs = append(errs, errors.New("executor.shell is required"))
	}
	if c.Database.MaxConns < 0 {
		errs = append(errs, fmt.Errorf("database.max_conns must not be negative, got %d", c.Database.MaxConns))
	}
	if c.RabbitMQ.Prefetch < 1 {
		errs = append(errs, fmt.Errorf("rabbitmq.prefetch must be at least 1, got %d", c.RabbitMQ.Prefetch))
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port out of range: %d", c.API.Port))
	}
	if !slices.Contains([]string{"DEBUG", "INFO", "WARN", "ERROR"}, strings.ToUpper(c.Logging.Level)) {
		errs = append(errs, fmt.Errorf("logging.level must be one of DEBUG, INFO, WARN, ERROR, got %q", c.Logging.Level))
	}
	if !slices.Contains([]string{"json", "text"}, strings.ToLower(c.Logging.Format)) {
		errs = append(errs, fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format))
	}

	names := make(map[string]bool, len(c.Schedules))
	for i, sc := range c.Schedules {
		switch {
		case sc.Name == "":
			errs = append(errs, fmt.Errorf("schedules[%d].name is required", i))
		case names[sc.Name]:
			errs = append(errs, fmt.Errorf("schedules[%d]: duplicate name %q", i, sc.Name))
		}
		names[sc.Name] = true
		if sc.Cron == "" {
			errs = append(errs, fmt.Errorf("schedules[%d].cron is required", i))
		}
		if sc.Command == "" && sc.Workflow == "" {
			errs = append(errs, fmt.Errorf("schedules[%d]: command or workflow is required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ConfigDir возвращает директорию пользовательской конфигурации.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "adws")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".adws"
	}
	return filepath.Join(home, ".config", "adws")
}

// ConfigFile возвращает путь к пользовательскому файлу конфигурации.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
