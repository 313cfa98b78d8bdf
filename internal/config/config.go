package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type PathsConfig struct {
	Input         string `yaml:"input"`
	TranscriptDir string `yaml:"transcript_dir"`
	SummaryDir    string `yaml:"summary_dir"`
}

type AudioConfig struct {
	TargetSampleRate int     `yaml:"target_sample_rate"`
	HeadroomDB       float64 `yaml:"headroom_db"`
	SilenceThreshDB  float64 `yaml:"silence_thresh_db"`
	MinSilenceMS     int     `yaml:"min_silence_ms"`
	KeepSilenceMS    int     `yaml:"keep_silence_ms"`
	NoiseSuppression bool    `yaml:"noise_suppression"`
	NoiseStrength    float64 `yaml:"noise_strength"`
}

type TranscriptionConfig struct {
	Mode            string  `yaml:"mode"` // mock, exec
	Command         string  `yaml:"command"`
	ModelPath       string  `yaml:"model_path"`
	Language        string  `yaml:"language"`
	ChunkSeconds    float64 `yaml:"chunk_seconds"`
	OverlapSeconds  float64 `yaml:"overlap_seconds"`
	Workers         int     `yaml:"workers"`
	WindowTimeoutMS int     `yaml:"window_timeout_ms"`
}

type SummaryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Mode         string  `yaml:"mode"` // mock, ollama
	Endpoint     string  `yaml:"endpoint"`
	Model        string  `yaml:"model"`
	Prompt       string  `yaml:"prompt"`
	MaxRetries   int     `yaml:"max_retries"`
	RetryDelayMS int     `yaml:"retry_delay_ms"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
}

type StoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxRuns       int    `yaml:"max_runs"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type Config struct {
	RuntimeName   string              `yaml:"runtime_name"`
	Environment   string              `yaml:"environment"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Paths         PathsConfig         `yaml:"paths"`
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Summary       SummaryConfig       `yaml:"summary"`
	Store         StoreConfig         `yaml:"store"`
	Bus           BusConfig           `yaml:"bus"`
}

func Default() Config {
	return Config{
		RuntimeName: "ollama-transcriber",
		Environment: "development",
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Paths: PathsConfig{
			Input:         "./results/raw-audio",
			TranscriptDir: "./results/transcribed-text",
			SummaryDir:    "./results/meeting-summaries",
		},
		Audio: AudioConfig{
			TargetSampleRate: 16000,
			HeadroomDB:       0.1,
			SilenceThreshDB:  -40,
			MinSilenceMS:     700,
			KeepSilenceMS:    500,
			NoiseSuppression: false,
			NoiseStrength:    0.75,
		},
		Transcription: TranscriptionConfig{
			Mode:            "mock",
			Language:        "en",
			ChunkSeconds:    30,
			OverlapSeconds:  4,
			Workers:         1,
			WindowTimeoutMS: 45000,
		},
		Summary: SummaryConfig{
			Enabled:      false,
			Mode:         "ollama",
			Endpoint:     "http://localhost:11434",
			Model:        "llama3.2:latest",
			Prompt:       "Summarize the following meeting transcript. Capture decisions, action items and open questions.",
			MaxRetries:   3,
			RetryDelayMS: 2000,
			Temperature:  0.7,
			MaxTokens:    0,
		},
		Store: StoreConfig{
			Path:          "./data/transcriber-runs.db",
			RetentionMode: "persistent",
			RetentionDays: 30,
			MaxRuns:       10000,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "TRANSCRIBER_RUNTIME_NAME")
	overrideString(&cfg.Environment, "TRANSCRIBER_ENVIRONMENT")
	overrideString(&cfg.Telemetry.LogLevel, "TRANSCRIBER_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "TRANSCRIBER_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "TRANSCRIBER_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "TRANSCRIBER_TELEMETRY_PROMETHEUS_BIND")
	overrideString(&cfg.Paths.Input, "TRANSCRIBER_INPUT")
	overrideString(&cfg.Paths.TranscriptDir, "TRANSCRIBER_TRANSCRIPT_DIR")
	overrideString(&cfg.Paths.SummaryDir, "TRANSCRIBER_SUMMARY_DIR")
	overrideInt(&cfg.Audio.TargetSampleRate, "TRANSCRIBER_AUDIO_TARGET_SAMPLE_RATE")
	overrideFloat(&cfg.Audio.HeadroomDB, "TRANSCRIBER_AUDIO_HEADROOM_DB")
	overrideFloat(&cfg.Audio.SilenceThreshDB, "TRANSCRIBER_AUDIO_SILENCE_THRESH_DB")
	overrideInt(&cfg.Audio.MinSilenceMS, "TRANSCRIBER_AUDIO_MIN_SILENCE_MS")
	overrideInt(&cfg.Audio.KeepSilenceMS, "TRANSCRIBER_AUDIO_KEEP_SILENCE_MS")
	overrideBool(&cfg.Audio.NoiseSuppression, "TRANSCRIBER_AUDIO_NOISE_SUPPRESSION")
	overrideFloat(&cfg.Audio.NoiseStrength, "TRANSCRIBER_AUDIO_NOISE_STRENGTH")
	overrideString(&cfg.Transcription.Mode, "TRANSCRIBER_STT_MODE")
	overrideString(&cfg.Transcription.Command, "TRANSCRIBER_STT_COMMAND")
	overrideString(&cfg.Transcription.ModelPath, "TRANSCRIBER_STT_MODEL_PATH")
	overrideString(&cfg.Transcription.Language, "TRANSCRIBER_STT_LANGUAGE")
	overrideFloat(&cfg.Transcription.ChunkSeconds, "TRANSCRIBER_STT_CHUNK_SECONDS")
	overrideFloat(&cfg.Transcription.OverlapSeconds, "TRANSCRIBER_STT_OVERLAP_SECONDS")
	overrideInt(&cfg.Transcription.Workers, "TRANSCRIBER_STT_WORKERS")
	overrideInt(&cfg.Transcription.WindowTimeoutMS, "TRANSCRIBER_STT_WINDOW_TIMEOUT_MS")
	overrideBool(&cfg.Summary.Enabled, "TRANSCRIBER_SUMMARY_ENABLED")
	overrideString(&cfg.Summary.Mode, "TRANSCRIBER_SUMMARY_MODE")
	overrideString(&cfg.Summary.Endpoint, "TRANSCRIBER_SUMMARY_ENDPOINT")
	overrideString(&cfg.Summary.Model, "TRANSCRIBER_SUMMARY_MODEL")
	overrideString(&cfg.Summary.Prompt, "TRANSCRIBER_SUMMARY_PROMPT")
	overrideInt(&cfg.Summary.MaxRetries, "TRANSCRIBER_SUMMARY_MAX_RETRIES")
	overrideInt(&cfg.Summary.RetryDelayMS, "TRANSCRIBER_SUMMARY_RETRY_DELAY_MS")
	overrideFloat(&cfg.Summary.Temperature, "TRANSCRIBER_SUMMARY_TEMPERATURE")
	overrideInt(&cfg.Summary.MaxTokens, "TRANSCRIBER_SUMMARY_MAX_TOKENS")
	overrideString(&cfg.Store.Path, "TRANSCRIBER_STORE_PATH")
	overrideString(&cfg.Store.RetentionMode, "TRANSCRIBER_STORE_RETENTION_MODE")
	overrideInt(&cfg.Store.RetentionDays, "TRANSCRIBER_STORE_RETENTION_DAYS")
	overrideInt(&cfg.Store.MaxRuns, "TRANSCRIBER_STORE_MAX_RUNS")
	overrideBool(&cfg.Store.VacuumOnStart, "TRANSCRIBER_STORE_VACUUM_ON_START")
	overrideBool(&cfg.Bus.Enabled, "TRANSCRIBER_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "TRANSCRIBER_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "TRANSCRIBER_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "TRANSCRIBER_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "TRANSCRIBER_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "TRANSCRIBER_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "TRANSCRIBER_BUS_TOKEN")
	overrideInt(&cfg.Bus.ConnectTimeout, "TRANSCRIBER_BUS_CONNECT_TIMEOUT_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.Audio.TargetSampleRate <= 0 {
		return errors.New("audio.target_sample_rate must be positive")
	}
	if cfg.Audio.SilenceThreshDB >= 0 {
		return errors.New("audio.silence_thresh_db must be negative (dBFS)")
	}
	if cfg.Audio.MinSilenceMS <= 0 {
		return errors.New("audio.min_silence_ms must be positive")
	}
	if cfg.Audio.KeepSilenceMS < 0 {
		return errors.New("audio.keep_silence_ms must be >= 0")
	}
	if cfg.Audio.NoiseStrength < 0 || cfg.Audio.NoiseStrength > 1 {
		return errors.New("audio.noise_strength must be within [0, 1]")
	}
	switch cfg.Transcription.Mode {
	case "mock", "exec":
	default:
		return errors.New("transcription.mode must be one of mock|exec")
	}
	if cfg.Transcription.Mode == "exec" && cfg.Transcription.Command == "" {
		return errors.New("transcription.command must be set when mode=exec")
	}
	if cfg.Transcription.ChunkSeconds <= 0 {
		return errors.New("transcription.chunk_seconds must be positive")
	}
	if cfg.Transcription.OverlapSeconds < 0 {
		return errors.New("transcription.overlap_seconds must be >= 0")
	}
	if cfg.Transcription.OverlapSeconds >= cfg.Transcription.ChunkSeconds {
		return errors.New("transcription.overlap_seconds must be smaller than chunk_seconds")
	}
	if cfg.Transcription.Workers <= 0 {
		return errors.New("transcription.workers must be >= 1")
	}
	if cfg.Transcription.WindowTimeoutMS <= 0 {
		return errors.New("transcription.window_timeout_ms must be positive")
	}
	if cfg.Summary.Enabled {
		switch cfg.Summary.Mode {
		case "mock", "ollama":
		default:
			return errors.New("summary.mode must be one of mock|ollama")
		}
		if cfg.Summary.Mode == "ollama" && cfg.Summary.Endpoint == "" {
			return errors.New("summary.endpoint must be set when mode=ollama")
		}
		if cfg.Summary.MaxRetries <= 0 {
			return errors.New("summary.max_retries must be >= 1")
		}
		if cfg.Summary.RetryDelayMS < 0 {
			return errors.New("summary.retry_delay_ms must be >= 0")
		}
	}
	if cfg.Store.Path == "" {
		return errors.New("store.path must not be empty")
	}
	switch cfg.Store.RetentionMode {
	case "ephemeral", "persistent":
	default:
		return errors.New("store.retention_mode must be one of ephemeral|persistent")
	}
	if cfg.Store.RetentionDays < 0 {
		return errors.New("store.retention_days must be >= 0")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	return nil
}
