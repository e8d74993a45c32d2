package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// Level indica a severidade de uma mensagem de log
type Level int

const (
	// DEBUG mensagens detalhadas de diagnóstico
	DEBUG Level = iota
	// INFO eventos normais de operação
	INFO
	// WARN condições anormais mas recuperáveis
	WARN
	// ERROR falhas que exigem atenção
	ERROR
	// FATAL falhas irrecuperáveis (encerra o processo)
	FATAL
)

var levelNames = [...]string{"DEBUG", "INFO ", "WARN ", "ERROR", "FATAL"}

// String retorna o nome do nível
func (l Level) String() string {
	if l < DEBUG || l > FATAL {
		return "?????"
	}
	return levelNames[l]
}

var (
	mu          sync.Mutex
	minLevel    = INFO
	console     io.Writer = os.Stdout
	logFile     io.WriteCloser
	timeFormat  = "2006-01-02 15:04:05.000"
	withCaller  = true
	initialized bool
)

// Init prepara o logger para uso. Chamadas repetidas são ignoradas.
func Init() {
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		return
	}
	initialized = true
}

// SetLevel define o nível mínimo que será emitido
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = level
}

// GetLevel retorna o nível mínimo atual
func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return minLevel
}

// IsDebugEnabled indica se mensagens DEBUG serão emitidas
func IsDebugEnabled() bool {
	return GetLevel() <= DEBUG
}

// SetOutput redireciona a saída do console (útil em testes)
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	console = w
}

// SetTimeFormat define o formato do timestamp das mensagens
func SetTimeFormat(format string) {
	mu.Lock()
	defer mu.Unlock()
	timeFormat = format
}

// EnableFileLogging espelha os logs em um arquivo dentro de logDir.
// O nome do arquivo recebe o prefixo e a data/hora de criação.
func EnableFileLogging(logDir, prefix string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("erro ao criar diretório de log: %w", err)
	}

	name := time.Now().Format("20060102_150405") + ".log"
	if prefix != "" {
		name = prefix + "_" + name
	}

	f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("erro ao criar arquivo de log: %w", err)
	}

	mu.Lock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	mu.Unlock()

	Infof("Log em arquivo habilitado: %s", filepath.Join(logDir, name))
	return nil
}

// Sync fecha o arquivo de log, garantindo que tudo foi gravado
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// GetLogger expõe um *log.Logger que escreve através deste pacote,
// para integração com bibliotecas que exigem essa interface (http.Server)
func GetLogger() *log.Logger {
	return log.New(writerFunc(func(p []byte) (int, error) {
		emit(ERROR, 4, "%s", string(p))
		return len(p), nil
	}), "", 0)
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

// emit formata e grava uma mensagem. calldepth aponta para o chamador
// original, usado para anotar arquivo:linha.
func emit(level Level, calldepth int, format string, args ...interface{}) {
	mu.Lock()
	if level < minLevel {
		mu.Unlock()
		return
	}

	var source string
	if withCaller {
		if _, file, line, ok := runtime.Caller(calldepth); ok {
			source = fmt.Sprintf(" [%s:%d]", filepath.Base(file), line)
		}
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	line := fmt.Sprintf("[%s] %s%s: %s\n", time.Now().Format(timeFormat), level, source, msg)

	out := console
	if out == nil {
		out = os.Stderr
	}
	io.WriteString(out, line)
	if logFile != nil {
		io.WriteString(logFile, line)
	}
	mu.Unlock()

	if level == FATAL {
		Sync()
		os.Exit(1)
	}
}

// Debug registra uma mensagem com nível DEBUG
func Debug(msg string) {
	emit(DEBUG, 2, "%s", msg)
}

// Debugf registra uma mensagem formatada com nível DEBUG
func Debugf(format string, args ...interface{}) {
	emit(DEBUG, 2, format, args...)
}

// Info registra uma mensagem com nível INFO
func Info(msg string) {
	emit(INFO, 2, "%s", msg)
}

// Infof registra uma mensagem formatada com nível INFO
func Infof(format string, args ...interface{}) {
	emit(INFO, 2, format, args...)
}

// Warn registra uma mensagem com nível WARN
func Warn(msg string) {
	emit(WARN, 2, "%s", msg)
}

// Warnf registra uma mensagem formatada com nível WARN
func Warnf(format string, args ...interface{}) {
	emit(WARN, 2, format, args...)
}

// Error registra uma mensagem com nível ERROR, anexando err quando presente
func Error(msg string, err error) {
	if err != nil {
		emit(ERROR, 2, "%s: %v", msg, err)
		return
	}
	emit(ERROR, 2, "%s", msg)
}

// Errorf registra uma mensagem formatada com nível ERROR
func Errorf(format string, args ...interface{}) {
	emit(ERROR, 2, format, args...)
}

// Fatal registra a mensagem e encerra o processo
func Fatal(msg string, err error) {
	if err != nil {
		emit(FATAL, 2, "%s: %v", msg, err)
		return
	}
	emit(FATAL, 2, "%s", msg)
}

// Fatalf registra a mensagem formatada e encerra o processo
func Fatalf(format string, args ...interface{}) {
	emit(FATAL, 2, format, args...)
}
