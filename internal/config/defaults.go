package config

import "time"

// getDefaultConfig retorna uma configuração padrão
func getDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Rover: RoverConfig{
			Host:           "",
			Port:           8765,
			CameraPort:     8766,
			ReconnectDelay: 5 * time.Second,
			DialTimeout:    10 * time.Second,
			Debug:          false,
		},
		Pilot: PilotConfig{
			TickInterval: 50 * time.Millisecond,
			MaxSpeed:     80,
			AccelStep:    10,
			DecayStep:    10,
			TurnAngle:    30,
			PanTiltStep:  5,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			Password: "",
			DB:       0,
			Prefix:   "rover",
			Enabled:  true,
		},
	}
}
