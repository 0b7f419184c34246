package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type BackendType string

const (
	BackendNative BackendType = "native"
	BackendOpenCV BackendType = "opencv"

	DefaultConfigPath    = "config.json"
	DefaultModelPath     = "food_freshness_model.onnx"
	ContainerModelPath   = "/app/food_freshness_model.onnx"
	DefaultFrontendPath  = "../frontend"
	ContainerFrontendDir = "/app/frontend"
	DefaultImageSize     = 256
	DefaultMaxUpload     = 10 << 20

	// DefaultMaxImagePixels is PIL's decompression-bomb threshold.
	DefaultMaxImagePixels = 178956970
)

// Duration decodes "15s"-style strings from JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

// Model, MQTT and Auth are embedded in Config, so their keys sit at the top
// level of the JSON file next to "port".
type Model struct {
	Path           string `json:"model_path"`
	MetadataPath   string `json:"model_metadata_path"`
	RuntimeLibrary string `json:"onnxruntime_lib"`
	IntraOpThreads int    `json:"intra_op_threads"`
}

type MQTT struct {
	Broker         string   `json:"mqtt_broker"`
	RequestTopic   string   `json:"mqtt_request_topic"`
	ResponseTopic  string   `json:"mqtt_response_topic"`
	RequestTimeout Duration `json:"mqtt_request_timeout"`
	MaxInFlight    int      `json:"mqtt_max_in_flight"`
}

type Auth struct {
	Secret   string `json:"jwt_secret"`
	Audience string `json:"jwt_audience"`
}

type Config struct {
	Port             string      `json:"port"`
	ImageSize        int         `json:"image_size"`
	ExtractorBackend BackendType `json:"extractor_backend"`
	FrontendPath     string      `json:"frontend_path"`
	MaxUploadBytes   int64       `json:"max_upload_bytes"`
	MaxImagePixels   int64       `json:"max_image_pixels"`
	LogLevel         string      `json:"log_level"`
	ShutdownTimeout  Duration    `json:"shutdown_timeout"`

	Model
	MQTT
	Auth
}

func NewDefaultConfig() *Config {
	return &Config{
		Port:             "8000",
		ImageSize:        DefaultImageSize,
		ExtractorBackend: BackendNative,
		FrontendPath:     DefaultFrontendPath,
		MaxUploadBytes:   DefaultMaxUpload,
		LogLevel:         "info",
		ShutdownTimeout:  Duration{15 * time.Second},
		MaxImagePixels:   DefaultMaxImagePixels,
		Model: Model{
			Path: DefaultModelPath,
		},
		MQTT: MQTT{
			Broker:         "tcp://localhost:1883",
			RequestTopic:   "/freshness/rpc/predict/request",
			ResponseTopic:  "/freshness/rpc/predict/response",
			RequestTimeout: Duration{30 * time.Second},
			MaxInFlight:    4,
		},
	}
}

// Load reads defaults, then the JSON file at path (if it exists), then the
// environment, and validates the result.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path == "" {
		path = getEnv("FRESHNESS_CONFIG", DefaultConfigPath)
	}
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	if err := cfg.loadEnvVariables(); err != nil {
		return nil, err
	}
	cfg.applyFallbackPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnvVariables() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("MODEL_PATH"); v != "" {
		c.Model.Path = v
	}
	if v := os.Getenv("MODEL_METADATA_PATH"); v != "" {
		c.Model.MetadataPath = v
	}
	if v := os.Getenv("ONNXRUNTIME_LIB"); v != "" {
		c.Model.RuntimeLibrary = v
	}
	if v := os.Getenv("EXTRACTOR_BACKEND"); v != "" {
		c.ExtractorBackend = BackendType(v)
	}
	if v := os.Getenv("FRONTEND_PATH"); v != "" {
		c.FrontendPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("JWT_AUDIENCE"); v != "" {
		c.Auth.Audience = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
	}
	if v := os.Getenv("MQTT_REQUEST_TOPIC"); v != "" {
		c.MQTT.RequestTopic = v
	}
	if v := os.Getenv("MQTT_RESPONSE_TOPIC"); v != "" {
		c.MQTT.ResponseTopic = v
	}

	if v := os.Getenv("IMAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("IMAGE_SIZE: %w", err)
		}
		c.ImageSize = n
	}
	if v := os.Getenv("INTRA_OP_THREADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("INTRA_OP_THREADS: %w", err)
		}
		c.Model.IntraOpThreads = n
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		c.MaxUploadBytes = n
	}
	if v := os.Getenv("MAX_IMAGE_PIXELS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_IMAGE_PIXELS: %w", err)
		}
		c.MaxImagePixels = n
	}
	if v := os.Getenv("MQTT_MAX_IN_FLIGHT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MQTT_MAX_IN_FLIGHT: %w", err)
		}
		c.MQTT.MaxInFlight = n
	}
	if v := os.Getenv("MQTT_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MQTT_REQUEST_TIMEOUT: %w", err)
		}
		c.MQTT.RequestTimeout = Duration{d}
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
		c.ShutdownTimeout = Duration{d}
	}
	return nil
}

// applyFallbackPaths swaps in the container locations when the configured
// defaults do not exist on disk.
func (c *Config) applyFallbackPaths() {
	if c.Model.Path == DefaultModelPath && !exists(c.Model.Path) && exists(ContainerModelPath) {
		c.Model.Path = ContainerModelPath
	}
	if c.FrontendPath == DefaultFrontendPath && !exists(c.FrontendPath) && exists(ContainerFrontendDir) {
		c.FrontendPath = ContainerFrontendDir
	}
}

func (c *Config) Validate() error {
	if c.ImageSize <= 0 {
		return fmt.Errorf("image_size must be positive, got %d", c.ImageSize)
	}
	switch c.ExtractorBackend {
	case BackendNative, BackendOpenCV:
	default:
		return fmt.Errorf("unknown extractor backend %q", c.ExtractorBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.MaxImagePixels <= 0 {
		return fmt.Errorf("max_image_pixels must be positive, got %d", c.MaxImagePixels)
	}
	if c.MQTT.MaxInFlight <= 0 {
		return fmt.Errorf("mqtt_max_in_flight must be positive, got %d", c.MQTT.MaxInFlight)
	}
	if c.MQTT.RequestTimeout.Duration < 0 {
		return fmt.Errorf("mqtt_request_timeout must not be negative, got %s", c.MQTT.RequestTimeout)
	}
	if c.Model.Path == "" {
		return errors.New("model_path is required")
	}
	if c.Model.IntraOpThreads < 0 {
		return fmt.Errorf("intra_op_threads must not be negative, got %d", c.Model.IntraOpThreads)
	}
	return nil
}

func (c *Config) AuthEnabled() bool {
	return c.Auth.Secret != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
