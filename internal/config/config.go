package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/annel0/twin-viewer/internal/geom"
	"github.com/annel0/twin-viewer/internal/vec"
)

// Config корневая структура конфигурации сервера двойника.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Highlight HighlightConfig `yaml:"highlight"`
	Update    UpdateConfig    `yaml:"update"`
	Feed      FeedConfig      `yaml:"feed"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Storage   StorageConfig   `yaml:"storage"`
	Scene     SceneConfig     `yaml:"scene"`
	Regions   []RegionConfig  `yaml:"regions"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type HighlightConfig struct {
	DefaultColor string `yaml:"default_color"` // hex, например "#FFEB04"
}

type UpdateConfig struct {
	Continuous bool `yaml:"continuous"`
	IntervalMs int  `yaml:"interval_ms"`
}

type FeedConfig struct {
	URL             string `yaml:"url"`
	PositionSubject string `yaml:"position_subject"`
	CommandSubject  string `yaml:"command_subject"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type StorageConfig struct {
	Backend         string `yaml:"backend"` // memory | redis | maria
	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	MariaDSN        string `yaml:"maria_dsn"`
	AutosaveSeconds int    `yaml:"autosave_seconds"`
}

// SceneConfig описывает статическую раскладку двойника
type SceneConfig struct {
	Elements []ElementConfig `yaml:"elements"`
}

// ElementConfig описывает один адресуемый объект сцены
type ElementConfig struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Mesh     string   `yaml:"mesh"`
	Material string   `yaml:"material"`
	Position vec.Vec3 `yaml:"position"`
}

// RegionConfig описывает регион и его объём
type RegionConfig struct {
	ID      string       `yaml:"id"`
	Color   string       `yaml:"color"` // hex, опционально
	Volume  VolumeConfig `yaml:"volume"`
	Members []string     `yaml:"members"`
	Active  bool         `yaml:"active"` // Начальное состояние
}

// VolumeConfig описывает геометрию объёма региона
type VolumeConfig struct {
	Type   string   `yaml:"type"` // box | sphere | capsule
	Center vec.Vec3 `yaml:"center"`
	Size   vec.Vec3 `yaml:"size"`   // для box
	Min    vec.Vec3 `yaml:"min"`    // альтернатива center/size для box
	Max    vec.Vec3 `yaml:"max"`    //
	Radius float64  `yaml:"radius"` // для sphere/capsule
	Height float64  `yaml:"height"` // для capsule
}

// Build создаёт геометрический объём по описанию
func (vc *VolumeConfig) Build() (geom.Volume, error) {
	switch vc.Type {
	case "box":
		if vc.Min != vc.Max {
			return geom.NewBoxMinMax(vc.Min, vc.Max), nil
		}
		return geom.NewBox(vc.Center, vc.Size), nil
	case "sphere":
		if vc.Radius <= 0 {
			return nil, fmt.Errorf("config: sphere-объём с некорректным радиусом %f", vc.Radius)
		}
		return geom.NewSphere(vc.Center, vc.Radius), nil
	case "capsule":
		if vc.Radius <= 0 {
			return nil, fmt.Errorf("config: capsule-объём с некорректным радиусом %f", vc.Radius)
		}
		return geom.NewCapsule(vc.Center, vc.Radius, vc.Height), nil
	default:
		return nil, fmt.Errorf("config: неизвестный тип объёма %q", vc.Type)
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "TWIN_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "TWIN_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV TWIN_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("TWIN_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
