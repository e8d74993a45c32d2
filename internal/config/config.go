package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

// Config representa a configuração completa da aplicação
type Config struct {
	Server ServerConfig `json:"server"`
	Rover  RoverConfig  `json:"rover"`
	Pilot  PilotConfig  `json:"pilot"`
	Redis  RedisConfig  `json:"redis"`
}

// ServerConfig contém configurações do servidor HTTP/WebSocket
type ServerConfig struct {
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"readTimeout"`
	WriteTimeout    time.Duration `json:"writeTimeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
}

// RoverConfig contém configurações de acesso ao rover.
// Host vazio ativa a descoberta via mDNS.
type RoverConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	CameraPort     int           `json:"cameraPort"`
	ReconnectDelay time.Duration `json:"reconnectDelay"`
	DialTimeout    time.Duration `json:"dialTimeout"`
	Debug          bool          `json:"debug"`
}

// PilotConfig contém os parâmetros do loop de pilotagem
type PilotConfig struct {
	TickInterval time.Duration `json:"tickInterval"`
	MaxSpeed     int           `json:"maxSpeed"`
	AccelStep    int           `json:"accelStep"`
	DecayStep    int           `json:"decayStep"`
	TurnAngle    int           `json:"turnAngle"`
	PanTiltStep  int           `json:"panTiltStep"`
}

// RedisConfig contém configurações do Redis
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
	Enabled  bool   `json:"enabled"`
}

// Load carrega a configuração do arquivo ou usa valores padrão
func Load() (*Config, error) {
	config := getDefaultConfig()

	// Verificar se existe um arquivo de configuração
	if _, err := os.Stat("config.json"); err == nil {
		file, err := os.Open("config.json")
		if err != nil {
			return nil, err
		}
		defer file.Close()

		decoder := json.NewDecoder(file)
		if err := decoder.Decode(&config); err != nil {
			return nil, err
		}
	}

	// Sobrescrever com variáveis de ambiente, se existirem
	applyEnvironmentOverrides(&config)

	return &config, nil
}

// applyEnvironmentOverrides sobrescreve configurações com variáveis de ambiente
func applyEnvironmentOverrides(config *Config) {
	envInt("SERVER_PORT", &config.Server.Port)

	envString("ROVER_HOST", &config.Rover.Host)
	envInt("ROVER_PORT", &config.Rover.Port)
	envInt("ROVER_CAMERA_PORT", &config.Rover.CameraPort)
	envDurationMs("ROVER_RECONNECT_DELAY_MS", &config.Rover.ReconnectDelay)
	envBool("ROVER_DEBUG", &config.Rover.Debug)

	envDurationMs("PILOT_TICK_MS", &config.Pilot.TickInterval)
	envInt("PILOT_MAX_SPEED", &config.Pilot.MaxSpeed)

	envString("REDIS_HOST", &config.Redis.Host)
	envInt("REDIS_PORT", &config.Redis.Port)
	envString("REDIS_PASSWORD", &config.Redis.Password)
	envBool("REDIS_ENABLED", &config.Redis.Enabled)
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDurationMs(name string, dst *time.Duration) {
	if v := os.Getenv(name); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			*dst = time.Duration(ms) * time.Millisecond
		}
	}
}
