package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"rover_go/internal/config"
	"rover_go/internal/discovery"
	"rover_go/internal/models"
	"rover_go/internal/pilot"
	"rover_go/internal/redis"
	"rover_go/internal/robot"
	"rover_go/internal/video"
	"rover_go/internal/websocket"
	"rover_go/pkg/logger"
)

// Server encapsula o servidor HTTP com todos os componentes da ponte
type Server struct {
	config           *config.Config
	httpServer       *http.Server
	router           *http.ServeMux
	handler          http.Handler
	roverClient      *robot.Client
	pilot            *pilot.Pilot
	redisService     *redis.Service
	wsHub            *websocket.Hub
	discoveryService *discovery.DiscoveryService
	serverInfo       ServerInfo

	ctx    context.Context
	cancel context.CancelFunc
}

// ServerInfo contém informações sobre o servidor
type ServerInfo struct {
	IP           string
	Port         int
	StartTime    time.Time
	Connections  int
	Version      string
	WebSocketURL string
	APIURL       string
}

// NewServer cria uma nova instância do servidor
func NewServer(cfg *config.Config) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Criar instância do servidor
	server := &Server{
		config: cfg,
		router: http.NewServeMux(),
		ctx:    ctx,
		cancel: cancel,
		serverInfo: ServerInfo{
			StartTime: time.Now(),
			Version:   "1.0.0",
			Port:      cfg.Server.Port,
		},
	}

	// Determinar IP do servidor
	ip, err := server.getLocalIP()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("erro ao obter IP local: %w", err)
	}
	server.serverInfo.IP = ip

	// Configurar URLs
	server.serverInfo.WebSocketURL = fmt.Sprintf("ws://%s:%d/ws", ip, cfg.Server.Port)
	server.serverInfo.APIURL = fmt.Sprintf("http://%s:%d/api", ip, cfg.Server.Port)

	// Inicializar componentes
	if err := server.initComponents(); err != nil {
		cancel()
		return nil, err
	}

	// Configurar rotas
	server.setupRoutes()

	// Configurar servidor HTTP
	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     logger.GetLogger(),
	}

	return server, nil
}

// initComponents inicializa todos os componentes do servidor
func (s *Server) initComponents() error {
	// Inicializar hub WebSocket. O loop só começa depois da fiação.
	s.wsHub = websocket.NewHub()

	// Inicializar serviço Redis
	redisService, err := redis.NewService(s.config.Redis)
	if err != nil {
		return fmt.Errorf("erro ao inicializar serviço Redis: %w", err)
	}
	s.redisService = redisService

	// Inicializar cliente do rover e loop de pilotagem
	s.roverClient = robot.NewClient(s.config.Rover)
	s.pilot = pilot.New(s.config.Pilot, s.roverClient.Commander())

	// Ligar os componentes entre si
	s.wireComponents()

	// Inicializar serviço de descoberta
	s.discoveryService = discovery.NewDiscoveryService(s.config.Server.Port)

	// Com tudo ligado, o hub pode rodar
	go s.wsHub.Run()

	return nil
}

// wireComponents conecta rover, pilotagem, hub e Redis
func (s *Server) wireComponents() {
	// O que o loop de pilotagem comandou entra no retrato de telemetria
	s.pilot.SetOnChange(s.roverClient.UpdateDriveState)

	// Telemetria nova vai aos operadores e ao histórico
	s.roverClient.RegisterTelemetryHandler(func(telemetry models.Telemetry) {
		s.wsHub.BroadcastTelemetry(telemetry)
		if err := s.redisService.WriteTelemetry(&telemetry); err != nil {
			logger.Debugf("Telemetria não persistida: %v", err)
		}
	})

	// Eventos tipados do rover são retransmitidos; fotos também são
	// arquivadas
	s.roverClient.RegisterEventHandler(func(event models.MessageType, payload interface{}) {
		s.wsHub.BroadcastEvent(event, payload)

		if event == models.TypeImage {
			s.archivePhoto(payload)
		}
	})

	// Mudanças de estado da ligação com o rover
	s.roverClient.RegisterStatusHandler(func(status models.RoverStatus) {
		s.wsHub.BroadcastStatus(status)
		if err := s.redisService.WriteStatus(status); err != nil {
			logger.Debugf("Status não persistido: %v", err)
		}
	})

	// Quadros de vídeo seguem como mensagens binárias. O quadro do
	// decodificador é reutilizado, então o relay recebe uma cópia estável.
	s.roverClient.RegisterVideoHandler(func(frame *video.Frame) {
		s.wsHub.BroadcastVideoFrame(video.EncodeFrame(frame))
	})

	// Eventos dos operadores: teclado e joystick alimentam a pilotagem,
	// comandos seguem direto para o rover
	s.wsHub.SetEventHandler(func(ev models.ClientEvent) {
		switch ev.Type {
		case "key_down":
			s.pilot.KeyDown(ev.Key)
		case "key_up":
			s.pilot.KeyUp(ev.Key)
		case "joystick":
			s.pilot.SetJoystick(ev.Angle, ev.Distance)
		case "command":
			s.roverClient.Commander().Enqueue(models.Command{
				Action: ev.Action,
				Params: ev.Params,
			})
		}
	})

	// A câmera só fica ligada enquanto houver operador; quando o último
	// sai, as entradas são soltas para a velocidade decair até parar
	s.wsHub.SetPresenceHandler(func(count int) {
		if count > 0 {
			s.roverClient.EnableCamera()
			return
		}
		s.pilot.ReleaseAll()
		s.roverClient.DisableCamera()
	})

	// Novos operadores recebem o retrato atual
	s.wsHub.SetSnapshotProvider(func() (models.Telemetry, models.RoverStatus) {
		return s.roverClient.Telemetry(), s.roverClient.Status()
	})

	// Consultas de histórico saem do Redis
	s.wsHub.SetHistoryProvider(func(metric string) []models.HistoryPoint {
		var history []models.HistoryPoint
		var err error
		switch metric {
		case "distance":
			history, err = s.redisService.GetDistanceHistory()
		default:
			history, err = s.redisService.GetBatteryHistory()
		}
		if err != nil {
			logger.Debugf("Histórico de %s indisponível: %v", metric, err)
			return nil
		}
		return history
	})
}

// archivePhoto decodifica o payload de uma foto e a envia ao Redis
func (s *Server) archivePhoto(payload interface{}) {
	raw, ok := payload.(json.RawMessage)
	if !ok {
		return
	}

	var image models.ImagePayload
	if err := json.Unmarshal(raw, &image); err != nil {
		logger.Warnf("Payload de foto inválido: %v", err)
		return
	}

	if err := s.redisService.WriteImage(image); err != nil {
		logger.Debugf("Foto %s não arquivada: %v", image.Name, err)
	}
}

// Start inicia o servidor e todos os serviços
func (s *Server) Start() error {
	// Iniciar serviço de descoberta
	if err := s.discoveryService.Start(); err != nil {
		logger.Warnf("Erro ao iniciar serviço de descoberta: %v", err)
		// Não abortar operação se falhar
	}

	// Resolver o endereço do rover pela rede quando não configurado
	if s.config.Rover.Host == "" {
		host, err := s.resolveRoverHost()
		if err != nil {
			// Encerramento durante a busca não é falha
			if s.ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.roverClient.SetHost(host)
	}

	// Conectar ao rover e iniciar a pilotagem
	if err := s.roverClient.Start(s.ctx); err != nil {
		return fmt.Errorf("erro ao iniciar cliente do rover: %w", err)
	}
	s.pilot.Start()

	// Mostrar informações do servidor
	s.logServerInfo()

	// Iniciar servidor HTTP
	logger.Infof("Iniciando servidor HTTP na porta %d", s.config.Server.Port)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("erro ao iniciar servidor HTTP: %w", err)
	}

	return nil
}

// resolveRoverHost procura o rover via mDNS até encontrá-lo ou o
// servidor ser encerrado, com espera exponencial entre tentativas
func (s *Server) resolveRoverHost() (string, error) {
	logger.Info("Endereço do rover não configurado; procurando na rede via mDNS")

	policy := robot.NewRetryPolicy(nil, robot.ExponentialDelay(2*time.Second, 30*time.Second))

	for {
		host, err := discovery.LookupRover(s.ctx, 5*time.Second)
		if err == nil {
			return host, nil
		}

		delay, ok := policy.Approve()
		if !ok {
			return "", fmt.Errorf("busca pelo rover esgotada: %w", err)
		}

		logger.Warnf("Rover não encontrado (%v); nova busca em %s", err, delay)
		select {
		case <-time.After(delay):
		case <-s.ctx.Done():
			return "", fmt.Errorf("busca pelo rover cancelada: %w", s.ctx.Err())
		}
	}
}

// Shutdown encerra graciosamente o servidor e todos os serviços
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Iniciando shutdown do servidor")

	s.cancel()

	// Encerrar o servidor HTTP
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("Erro ao encerrar servidor HTTP: %v", err)
	}

	// Encerrar serviço de descoberta
	if s.discoveryService != nil {
		s.discoveryService.Stop()
	}

	// Encerrar pilotagem e conexões com o rover
	if s.pilot != nil {
		s.pilot.Stop()
	}

	if s.roverClient != nil {
		s.roverClient.Stop()
	}

	if s.wsHub != nil {
		s.wsHub.Shutdown()
	}

	if s.redisService != nil {
		s.redisService.Shutdown()
	}

	logger.Info("Shutdown completo")
	return nil
}

// getLocalIP obtém o endereço IP local
func (s *Server) getLocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}

	for _, addr := range addrs {
		// Verificar se é um endereço IP
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}

	return "localhost", nil
}

// GetServerInfo retorna informações sobre o servidor
func (s *Server) GetServerInfo() ServerInfo {
	info := s.serverInfo
	info.Connections = s.wsHub.ClientCount()
	return info
}

// logServerInfo exibe informações do servidor no log
func (s *Server) logServerInfo() {
	logger.Info("===============================================")
	logger.Info("               Rover Bridge Server             ")
	logger.Info("===============================================")
	logger.Infof("Versão: %s", s.serverInfo.Version)
	logger.Infof("Endereço IP: %s", s.serverInfo.IP)
	logger.Infof("Porta HTTP: %d", s.serverInfo.Port)
	logger.Infof("WebSocket URL: %s", s.serverInfo.WebSocketURL)
	logger.Infof("API URL: %s", s.serverInfo.APIURL)
	logger.Infof("Rover: %s", s.roverClient.Status().ConnectionInfo)
	logger.Infof("mDNS: %s.%s.%s",
		s.discoveryService.GetInstanceName(),
		discovery.ServiceType,
		discovery.ServiceDomain)
	logger.Info("===============================================")
	logger.Info("Servidor pronto para conexões!")
}
