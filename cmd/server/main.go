package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"rover_go/internal/config"
	"rover_go/internal/server"
	"rover_go/pkg/logger"
)

func main() {
	// Configurar diretório de logs
	logDir := filepath.Join(".", "logs")
	os.MkdirAll(logDir, 0755)

	// Inicializar logger
	logger.Init()
	logger.SetLevel(logger.DEBUG) // Usar DEBUG para ter mais informações durante desenvolvimento
	logger.EnableFileLogging(logDir, "rover")
	defer logger.Sync()

	// Exibir banner de inicialização
	displayBanner()

	logger.Info("Iniciando Rover Bridge")

	// Carregar configurações
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Erro ao carregar configurações", err)
	}

	// Um tick muito curto só queima CPU sem deixar a pilotagem mais macia
	if cfg.Pilot.TickInterval < 10*time.Millisecond {
		logger.Warn("Intervalo de pilotagem muito curto. Definindo para 10ms")
		cfg.Pilot.TickInterval = 10 * time.Millisecond
	}

	roverHost := cfg.Rover.Host
	if roverHost == "" {
		roverHost = "(descoberta mDNS)"
	}
	logger.Infof("Configuração carregada: Rover em %s:%d, Redis em %s:%d",
		roverHost, cfg.Rover.Port, cfg.Redis.Host, cfg.Redis.Port)
	logger.Infof("Intervalo de pilotagem: %v", cfg.Pilot.TickInterval)

	// Criar e iniciar o servidor
	srv, err := server.NewServer(cfg)
	if err != nil {
		logger.Fatal("Erro ao criar servidor", err)
	}

	// Iniciar o servidor em uma goroutine separada
	go func() {
		logger.Infof("Servidor iniciado na porta %d", cfg.Server.Port)
		if err := srv.Start(); err != nil {
			logger.Fatal("Erro ao iniciar o servidor", err)
		}
	}()

	// Configurar captura de sinais para shutdown gracioso
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Desligando servidor...")

	// Criar contexto com timeout para o shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Desligar o servidor
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Erro durante o shutdown do servidor", err)
	}

	logger.Info("Servidor encerrado com sucesso")
}

// displayBanner exibe um banner de inicialização
func displayBanner() {
	banner := `
  ______  _____  _    _ _______  ______      ______   ______ _____ ______  ______ _______
 |_____/ |     |  \  /  |______ |_____/      |_____] |_____/   |   |     \ |  ____ |______
 |    \_ |_____|   \/   |______ |    \_      |_____] |    \_ __|__ |_____/ |_____| |______
                                                                                REMOTE PILOT
 `
	fmt.Println(banner)
	fmt.Printf("Iniciando em %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
}
