package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Recognition RecognitionConfig `yaml:"recognition"`
	Vision      VisionConfig      `yaml:"vision"`
	Camera      CameraConfig      `yaml:"camera"`
	Roster      RosterConfig      `yaml:"roster"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Web         WebConfig         `yaml:"web"`
	Database    DatabaseConfig    `yaml:"-"`
	Redis       RedisConfig       `yaml:"-"`
	Cassandra   CassandraConfig   `yaml:"-"`
}

type RecognitionConfig struct {
	Threshold       float64 `yaml:"threshold"`         // exclusive Euclidean distance bound (default 0.50)
	DetectionScale  float64 `yaml:"detection_scale"`   // downsample factor before detection (default 0.25)
	MultiFacePolicy string  `yaml:"multi_face_policy"` // first | largest
	Smoothing       string  `yaml:"smoothing"`         // none | majority
	SmoothingWindow int     `yaml:"smoothing_window"`
	JPEGQuality     int     `yaml:"jpeg_quality"`
}

type VisionConfig struct {
	Backend   string `yaml:"backend"`    // dlib | remote
	ModelsDir string `yaml:"models_dir"` // dlib model files (shape predictor, resnet, cnn detector)
	URL       string `yaml:"url"`        // remote embedding service
	CNN       bool   `yaml:"cnn"`        // dlib CNN detector instead of HOG
}

type CameraConfig struct {
	Driver string `yaml:"driver"` // gocv | ffmpeg | dir
	Device int    `yaml:"device"` // gocv device id
	Input  string `yaml:"input"`  // ffmpeg input (file, rtsp url) or image directory
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"` // ffmpeg output rate, 0 keeps the input rate
}

type RosterConfig struct {
	Dir string `yaml:"dir"` // one sub-directory of reference images per group
}

type LedgerConfig struct {
	Backend string `yaml:"backend"` // file | postgres | redis | cassandra
	Dir     string `yaml:"dir"`     // directory for Attendance_<GROUP>.csv files
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"-"` // extra CORS origins, localhost is always allowed
}

type DatabaseConfig struct {
	URL            string // PostgreSQL connection URL
	MaxOpenConns   int    // Maximum open connections (default 25)
	MaxIdleConns   int    // Maximum idle connections (default 5)
	EmbeddingCache bool   // Cache reference embeddings in PostgreSQL (requires URL)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CassandraConfig struct {
	Hosts    []string
	Keyspace string
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	r := &cfg.Recognition
	r.Threshold = envFloat("RECOGNITION_THRESHOLD", r.Threshold)
	r.DetectionScale = envFloat("RECOGNITION_DETECTION_SCALE", r.DetectionScale)
	r.MultiFacePolicy = envString("RECOGNITION_MULTI_FACE_POLICY", r.MultiFacePolicy)
	r.Smoothing = envString("RECOGNITION_SMOOTHING", r.Smoothing)
	r.SmoothingWindow = envInt("RECOGNITION_SMOOTHING_WINDOW", r.SmoothingWindow)
	r.JPEGQuality = envInt("RECOGNITION_JPEG_QUALITY", r.JPEGQuality)

	v := &cfg.Vision
	v.Backend = envString("VISION_BACKEND", v.Backend)
	v.ModelsDir = envString("VISION_MODELS_DIR", v.ModelsDir)
	v.URL = envString("EMBEDDING_URL", v.URL)
	v.CNN = envBool("VISION_CNN", v.CNN)

	c := &cfg.Camera
	c.Driver = envString("CAMERA_DRIVER", c.Driver)
	c.Device = envInt("CAMERA_DEVICE", c.Device)
	c.Input = envString("CAMERA_INPUT", c.Input)
	c.Width = envInt("CAMERA_WIDTH", c.Width)
	c.Height = envInt("CAMERA_HEIGHT", c.Height)
	c.FPS = envInt("CAMERA_FPS", c.FPS)

	cfg.Roster.Dir = envString("ROSTER_DIR", cfg.Roster.Dir)
	cfg.Ledger.Backend = envString("LEDGER_BACKEND", cfg.Ledger.Backend)
	cfg.Ledger.Dir = envString("LEDGER_DIR", cfg.Ledger.Dir)
	cfg.Web.Host = envString("WEB_HOST", cfg.Web.Host)
	cfg.Web.Port = envInt("WEB_PORT", cfg.Web.Port)
	cfg.Web.AllowedOrigins = splitList(os.Getenv("WEB_ALLOWED_ORIGINS"))

	cfg.Database = DatabaseConfig{
		URL:            os.Getenv("DATABASE_URL"),
		MaxOpenConns:   envInt("DATABASE_MAX_OPEN_CONNS", 25),
		MaxIdleConns:   envInt("DATABASE_MAX_IDLE_CONNS", 5),
		EmbeddingCache: envBool("EMBEDDING_CACHE", false),
	}
	cfg.Redis = RedisConfig{
		Addr:     envString("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
	}
	cfg.Cassandra = CassandraConfig{
		Hosts:    splitList(envString("CASSANDRA_HOSTS", "localhost")),
		Keyspace: envString("CASSANDRA_KEYSPACE", "rollcall"),
	}

	return &cfg
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	r := c.Recognition
	if r.Threshold <= 0 {
		return fmt.Errorf("recognition threshold must be positive, got %v", r.Threshold)
	}
	if r.DetectionScale <= 0 || r.DetectionScale > 1 {
		return fmt.Errorf("detection scale must be in (0, 1], got %v", r.DetectionScale)
	}
	if r.JPEGQuality < 1 || r.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be in [1, 100], got %d", r.JPEGQuality)
	}
	if !oneOf(r.MultiFacePolicy, "first", "largest") {
		return fmt.Errorf("unknown multi-face policy %q", r.MultiFacePolicy)
	}
	if !oneOf(r.Smoothing, "none", "majority") {
		return fmt.Errorf("unknown smoothing %q", r.Smoothing)
	}
	if r.Smoothing == "majority" && r.SmoothingWindow < 1 {
		return errors.New("smoothing window must be at least 1")
	}
	if !oneOf(c.Vision.Backend, "dlib", "remote") {
		return fmt.Errorf("unknown vision backend %q", c.Vision.Backend)
	}
	if !oneOf(c.Camera.Driver, "gocv", "ffmpeg", "dir") {
		return fmt.Errorf("unknown camera driver %q", c.Camera.Driver)
	}
	if c.Camera.Driver != "gocv" && c.Camera.Input == "" {
		return fmt.Errorf("CAMERA_INPUT is required for the %s camera driver", c.Camera.Driver)
	}
	if !oneOf(c.Ledger.Backend, "file", "postgres", "redis", "cassandra") {
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be in [1, 65535], got %d", c.Web.Port)
	}
	if (c.Ledger.Backend == "postgres" || c.Database.EmbeddingCache) && c.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	return nil
}

func oneOf(s string, options ...string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
