package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"rover_go/internal/config"
	"rover_go/internal/models"
	"rover_go/pkg/logger"
)

// Service gerencia a conexão e operações com o Redis
type Service struct {
	client    *redis.Client
	ctx       context.Context
	cancel    context.CancelFunc
	prefix    string
	config    config.RedisConfig
	connected bool
	mutex     sync.RWMutex

	// Última tentativa de reconexão, para não martelar um Redis fora do ar
	lastReconnect time.Time

	// Constantes específicas do serviço
	maxHistorySize    int
	maxPhotoIndexSize int
}

// NewService cria um novo serviço Redis
func NewService(cfg config.RedisConfig) (*Service, error) {
	if !cfg.Enabled {
		logger.Info("Serviço Redis desabilitado por configuração")
		return &Service{
			config:            cfg,
			connected:         false,
			maxHistorySize:    1000,
			maxPhotoIndexSize: 100,
		}, nil
	}

	// Criar contexto cancelável
	ctx, cancel := context.WithCancel(context.Background())

	// Configurar endereço
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	// Criar cliente Redis
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Criar serviço
	service := &Service{
		client:            client,
		ctx:               ctx,
		cancel:            cancel,
		prefix:            cfg.Prefix,
		config:            cfg,
		maxHistorySize:    1000,
		maxPhotoIndexSize: 100,
	}

	// Testar conexão
	if err := service.TestConnection(); err != nil {
		logger.Warnf("Aviso: %v. O Redis será utilizado em modo offline.", err)
		service.connected = false
		return service, nil
	}

	service.connected = true
	return service, nil
}

// TestConnection testa a conexão com o Redis
func (s *Service) TestConnection() error {
	if !s.config.Enabled {
		return fmt.Errorf("serviço Redis desabilitado")
	}

	result, err := s.client.Ping(s.ctx).Result()
	if err != nil {
		return fmt.Errorf("erro ao conectar ao Redis: %w", err)
	}

	logger.Infof("Conexão com o Redis estabelecida. Resposta: %s", result)
	s.mutex.Lock()
	s.connected = true
	s.mutex.Unlock()
	return nil
}

// IsConnected verifica se o serviço está conectado
func (s *Service) IsConnected() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.connected && s.config.Enabled
}

// ready informa se uma operação deve prosseguir, tentando uma reconexão
// no máximo a cada 30 segundos quando o serviço caiu para modo offline
func (s *Service) ready() bool {
	if !s.config.Enabled {
		return false
	}

	s.mutex.RLock()
	connected := s.connected
	lastReconnect := s.lastReconnect
	s.mutex.RUnlock()

	if connected {
		return true
	}

	if time.Since(lastReconnect) < 30*time.Second {
		return false
	}

	s.mutex.Lock()
	s.lastReconnect = time.Now()
	s.mutex.Unlock()

	if err := s.TestConnection(); err != nil {
		return false
	}
	logger.Info("Conexão com o Redis restabelecida")
	return true
}

// markOffline registra uma falha de escrita e rebaixa o serviço para offline
func (s *Service) markOffline() {
	s.mutex.Lock()
	s.connected = false
	s.lastReconnect = time.Now()
	s.mutex.Unlock()
}

// historyMember codifica um ponto de histórico. O timestamp faz parte do
// membro para que valores repetidos não colapsem no sorted set.
func historyMember(timestamp int64, value float64) string {
	return fmt.Sprintf("%d:%s", timestamp, strconv.FormatFloat(value, 'f', -1, 64))
}

// parseHistoryValue extrai o valor numérico de um membro de histórico
func parseHistoryValue(member string) (float64, error) {
	// O membro tem o formato "timestamp:valor"
	_, rawValue, found := strings.Cut(member, ":")
	if !found {
		rawValue = member
	}
	return strconv.ParseFloat(rawValue, 64)
}

// WriteTelemetry escreve o retrato atual do rover e alimenta os históricos
// de bateria e distância
func (s *Service) WriteTelemetry(telemetry *models.Telemetry) error {
	if !s.ready() {
		return nil
	}

	// Criar uma pipeline para enviar vários comandos de uma vez
	pipe := s.client.Pipeline()
	timestamp := telemetry.Timestamp.UnixMilli()

	// Armazena o retrato completo em JSON para clientes móveis
	if jsonData, err := json.Marshal(telemetry); err == nil {
		pipe.Set(s.ctx, fmt.Sprintf("%s:telemetry", s.prefix), string(jsonData), 0)
	}

	// Valores atuais
	pipe.Set(s.ctx, fmt.Sprintf("%s:battery", s.prefix), telemetry.BatteryVoltage, 0)
	pipe.Set(s.ctx, fmt.Sprintf("%s:battery_percent", s.prefix), telemetry.BatteryPercent, 0)
	pipe.Set(s.ctx, fmt.Sprintf("%s:distance", s.prefix), telemetry.DistanceCM, 0)
	pipe.Set(s.ctx, fmt.Sprintf("%s:timestamp", s.prefix), timestamp, 0)

	// Histórico de bateria com timestamp
	batteryKey := fmt.Sprintf("%s:battery:history", s.prefix)
	pipe.ZAdd(s.ctx, batteryKey, &redis.Z{
		Score:  float64(timestamp),
		Member: historyMember(timestamp, telemetry.BatteryVoltage),
	})

	// Limitando o tamanho do histórico (mantém últimos 1000 pontos)
	pipe.ZRemRangeByRank(s.ctx, batteryKey, 0, int64(-1*(s.maxHistorySize+1)))

	// Histórico de distância com timestamp
	distanceKey := fmt.Sprintf("%s:distance:history", s.prefix)
	pipe.ZAdd(s.ctx, distanceKey, &redis.Z{
		Score:  float64(timestamp),
		Member: historyMember(timestamp, telemetry.DistanceCM),
	})

	pipe.ZRemRangeByRank(s.ctx, distanceKey, 0, int64(-1*(s.maxHistorySize+1)))

	// Última atualização global para os clientes móveis
	latestData := map[string]interface{}{
		"timestamp": timestamp,
		"telemetry": telemetry,
	}
	if jsonData, err := json.Marshal(latestData); err == nil {
		pipe.Set(s.ctx, fmt.Sprintf("%s:latest_update", s.prefix), string(jsonData), 0)
	}

	// Executa a pipeline
	if _, err := pipe.Exec(s.ctx); err != nil {
		s.markOffline()
		return fmt.Errorf("erro ao escrever telemetria no Redis: %w", err)
	}

	return nil
}

// WriteStatus escreve o status da ligação com o rover no Redis
func (s *Service) WriteStatus(status models.RoverStatus) error {
	if !s.ready() {
		return nil
	}

	// Criar uma pipeline para enviar vários comandos
	pipe := s.client.Pipeline()

	// Armazenar status básico
	pipe.Set(s.ctx, fmt.Sprintf("%s:status", s.prefix), status.Status, 0)
	pipe.Set(s.ctx, fmt.Sprintf("%s:status_timestamp", s.prefix),
		status.Timestamp.UnixMilli(), 0)

	// Armazenar informações de erro, se houver
	if status.LastError != "" {
		pipe.Set(s.ctx, fmt.Sprintf("%s:ultimo_erro", s.prefix), status.LastError, 0)
	}

	if status.ErrorCount > 0 {
		pipe.Set(s.ctx, fmt.Sprintf("%s:erros_consecutivos", s.prefix), status.ErrorCount, 0)
	}

	// Executar pipeline
	if _, err := pipe.Exec(s.ctx); err != nil {
		s.markOffline()
		return fmt.Errorf("erro ao escrever status no Redis: %w", err)
	}

	return nil
}

// WriteImage armazena uma foto tirada pelo rover e atualiza o índice
func (s *Service) WriteImage(image models.ImagePayload) error {
	if !s.ready() {
		return nil
	}
	if image.Name == "" {
		return fmt.Errorf("foto sem nome não pode ser armazenada")
	}

	timestamp := time.Now().UnixMilli()

	pipe := s.client.Pipeline()

	// Conteúdo da foto (base64) em chave própria
	photoKey := fmt.Sprintf("%s:photo:%s", s.prefix, image.Name)
	pipe.Set(s.ctx, photoKey, image.Data, 0)

	// Índice ordenado por data para listagem
	indexKey := fmt.Sprintf("%s:photos", s.prefix)
	pipe.ZAdd(s.ctx, indexKey, &redis.Z{
		Score:  float64(timestamp),
		Member: image.Name,
	})

	// Limita o índice às fotos mais recentes
	pipe.ZRemRangeByRank(s.ctx, indexKey, 0, int64(-1*(s.maxPhotoIndexSize+1)))

	if _, err := pipe.Exec(s.ctx); err != nil {
		s.markOffline()
		return fmt.Errorf("erro ao armazenar foto no Redis: %w", err)
	}

	logger.Debugf("Foto %s armazenada no Redis", image.Name)
	return nil
}

// GetStatus obtém o status atual do Redis
func (s *Service) GetStatus() (*models.RoverStatus, error) {
	if !s.ready() {
		return nil, fmt.Errorf("Redis não conectado ou desabilitado")
	}

	// Obter status e timestamp
	statusCmd := s.client.Get(s.ctx, fmt.Sprintf("%s:status", s.prefix))
	if statusCmd.Err() != nil {
		return nil, fmt.Errorf("erro ao obter status: %w", statusCmd.Err())
	}

	timestampCmd := s.client.Get(s.ctx, fmt.Sprintf("%s:status_timestamp", s.prefix))
	if timestampCmd.Err() != nil && timestampCmd.Err() != redis.Nil {
		return nil, fmt.Errorf("erro ao obter timestamp: %w", timestampCmd.Err())
	}

	// Obter informações de erro
	lastErrorCmd := s.client.Get(s.ctx, fmt.Sprintf("%s:ultimo_erro", s.prefix))
	errorCountCmd := s.client.Get(s.ctx, fmt.Sprintf("%s:erros_consecutivos", s.prefix))

	// Construir objeto de status
	status := &models.RoverStatus{
		Status:    statusCmd.Val(),
		Timestamp: time.Now(), // Valor padrão
	}

	// Processar timestamp se disponível
	if timestampCmd.Err() == nil {
		ts, err := timestampCmd.Int64()
		if err == nil {
			status.Timestamp = time.Unix(0, ts*int64(time.Millisecond))
		}
	}

	// Processar erro se disponível
	if lastErrorCmd.Err() == nil {
		status.LastError = lastErrorCmd.Val()
	}

	// Processar contador de erros se disponível
	if errorCountCmd.Err() == nil {
		count, err := errorCountCmd.Int()
		if err == nil {
			status.ErrorCount = count
		}
	}

	return status, nil
}

// GetTelemetry obtém o retrato mais recente do rover salvo no Redis
func (s *Service) GetTelemetry() (*models.Telemetry, error) {
	if !s.ready() {
		return nil, fmt.Errorf("Redis não conectado ou desabilitado")
	}

	dataCmd := s.client.Get(s.ctx, fmt.Sprintf("%s:telemetry", s.prefix))
	if dataCmd.Err() != nil {
		return nil, fmt.Errorf("erro ao obter telemetria: %w", dataCmd.Err())
	}

	var telemetry models.Telemetry
	if err := json.Unmarshal([]byte(dataCmd.Val()), &telemetry); err != nil {
		return nil, fmt.Errorf("erro ao decodificar telemetria: %w", err)
	}

	return &telemetry, nil
}

// GetBatteryHistory obtém o histórico de tensão da bateria
func (s *Service) GetBatteryHistory() ([]models.HistoryPoint, error) {
	return s.getHistory(fmt.Sprintf("%s:battery:history", s.prefix))
}

// GetDistanceHistory obtém o histórico do sensor de distância
func (s *Service) GetDistanceHistory() ([]models.HistoryPoint, error) {
	return s.getHistory(fmt.Sprintf("%s:distance:history", s.prefix))
}

// getHistory lê um sorted set de histórico e o converte em pontos
func (s *Service) getHistory(historyKey string) ([]models.HistoryPoint, error) {
	if !s.ready() {
		return nil, fmt.Errorf("Redis não conectado ou desabilitado")
	}

	dataCmd := s.client.ZRangeWithScores(s.ctx, historyKey, 0, -1)
	if dataCmd.Err() != nil {
		return nil, fmt.Errorf("erro ao obter histórico: %w", dataCmd.Err())
	}

	// Processar resultados
	results := dataCmd.Val()
	history := make([]models.HistoryPoint, 0, len(results))

	for _, item := range results {
		member, ok := item.Member.(string)
		if !ok {
			continue
		}

		val, err := parseHistoryValue(member)
		if err != nil {
			continue
		}

		// Timestamp vem do score
		timestamp := time.Unix(0, int64(item.Score)*int64(time.Millisecond))

		history = append(history, models.HistoryPoint{
			Value:     val,
			Timestamp: timestamp,
		})
	}

	return history, nil
}

// GetPhotoIndex lista os nomes das fotos mais recentes, da mais nova para
// a mais antiga
func (s *Service) GetPhotoIndex() ([]string, error) {
	if !s.ready() {
		return nil, fmt.Errorf("Redis não conectado ou desabilitado")
	}

	keysCmd := s.client.ZRevRange(s.ctx, fmt.Sprintf("%s:photos", s.prefix), 0, int64(s.maxPhotoIndexSize-1))
	if keysCmd.Err() != nil {
		return nil, fmt.Errorf("erro ao listar fotos: %w", keysCmd.Err())
	}

	return keysCmd.Val(), nil
}

// GetPhoto obtém o conteúdo em base64 de uma foto pelo nome
func (s *Service) GetPhoto(name string) (string, error) {
	if !s.ready() {
		return "", fmt.Errorf("Redis não conectado ou desabilitado")
	}

	dataCmd := s.client.Get(s.ctx, fmt.Sprintf("%s:photo:%s", s.prefix, name))
	if dataCmd.Err() != nil {
		return "", fmt.Errorf("erro ao obter foto %s: %w", name, dataCmd.Err())
	}

	return dataCmd.Val(), nil
}

// Shutdown encerra graciosamente o serviço Redis
func (s *Service) Shutdown() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	if s.client != nil {
		if err := s.client.Close(); err != nil {
			logger.Errorf("Erro ao fechar conexão com Redis: %v", err)
		} else {
			logger.Info("Conexão com o Redis fechada")
		}
	}

	s.connected = false
}
