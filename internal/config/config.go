package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Environment string
	LogLevel    string
	LogFormat   string

	// Database (vazio = store em memória, apenas desenvolvimento)
	DatabaseURL string

	// Fuso de referência: todos os horários/dias dos lembretes são avaliados nele
	ReferenceTimezone         string
	ReferenceUTCOffsetMinutes int

	// Scheduler
	TickSchedule            string
	EscalationSchedule      string
	WorkerRunTimeoutSeconds int
	OperationTimeoutSeconds int
	FanoutConcurrency       int

	// Firebase
	FirebaseCredentialsPath string

	// SMTP Configuration
	EnableEmail   bool
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPFromName  string
	SMTPFromEmail string

	// Redis (trava opcional por minuto do tick)
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	EnableTickLock bool

	// RabbitMQ (eventos de adesão para analytics)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Google Calendar
	CalendarCredentialsPath string
	CalendarID              string
}

// Load lê o .env (opcional) e as variáveis de ambiente.
// O bool indica se o .env foi encontrado.
func Load() (*Config, bool) {
	dotenv := godotenv.Load() == nil

	return &Config{
		// Server
		Port:        getEnvWithDefault("PORT", "8080"),
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:   getEnvWithDefault("LOG_FORMAT", "json"),

		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Fuso de referência (Brasil sem horário de verão desde 2019)
		ReferenceTimezone:         getEnvWithDefault("REFERENCE_TIMEZONE", "America/Sao_Paulo"),
		ReferenceUTCOffsetMinutes: getEnvInt("REFERENCE_UTC_OFFSET_MINUTES", -180),

		// Scheduler
		TickSchedule:            getEnvWithDefault("TICK_SCHEDULE", "* * * * *"),
		EscalationSchedule:      getEnvWithDefault("ESCALATION_SCHEDULE", "* * * * *"),
		WorkerRunTimeoutSeconds: getEnvInt("WORKER_RUN_TIMEOUT_SECONDS", 50),
		OperationTimeoutSeconds: getEnvInt("OPERATION_TIMEOUT_SECONDS", 5),
		FanoutConcurrency:       getEnvInt("FANOUT_CONCURRENCY", 8),

		// Firebase
		FirebaseCredentialsPath: os.Getenv("FIREBASE_CREDENTIALS_PATH"),

		// SMTP
		EnableEmail:   getEnvBool("ENABLE_EMAIL", true),
		SMTPHost:      getEnvWithDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		SMTPFromName:  getEnvWithDefault("SMTP_FROM_NAME", "EVA - Lembretes de Medicamentos"),
		SMTPFromEmail: os.Getenv("SMTP_FROM_EMAIL"),

		// Redis
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		EnableTickLock: getEnvBool("ENABLE_TICK_LOCK", false),

		// RabbitMQ
		AMQPURL:        os.Getenv("AMQP_URL"),
		AMQPExchange:   getEnvWithDefault("AMQP_EXCHANGE", "eva.adherence"),
		AMQPRoutingKey: getEnvWithDefault("AMQP_ROUTING_KEY", "adherence.updated"),

		// Google Calendar
		CalendarCredentialsPath: os.Getenv("CALENDAR_CREDENTIALS_PATH"),
		CalendarID:              getEnvWithDefault("CALENDAR_ID", "primary"),
	}, dotenv
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// OperationTimeout limite de cada I/O individual (store, email, push, calendário)
func (c *Config) OperationTimeout() time.Duration {
	return time.Duration(c.OperationTimeoutSeconds) * time.Second
}

// WorkerRunTimeout limite de uma execução completa do tick ou do escalonador
func (c *Config) WorkerRunTimeout() time.Duration {
	return time.Duration(c.WorkerRunTimeoutSeconds) * time.Second
}

// EmailConfigured indica se há credenciais SMTP suficientes
func (c *Config) EmailConfigured() bool {
	return c.EnableEmail && c.SMTPUsername != "" && c.SMTPPassword != ""
}

// Validate valida se as configurações obrigatórias estão presentes e coerentes.
// Devolve avisos não fatais separadamente.
func (c *Config) Validate() (warnings []string, err error) {
	if c.DatabaseURL == "" && c.Environment == "production" {
		return nil, fmt.Errorf("DATABASE_URL is required in production")
	}

	if c.ReferenceUTCOffsetMinutes < -14*60 || c.ReferenceUTCOffsetMinutes > 14*60 {
		return nil, fmt.Errorf("REFERENCE_UTC_OFFSET_MINUTES out of range: %d", c.ReferenceUTCOffsetMinutes)
	}

	if c.OperationTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("OPERATION_TIMEOUT_SECONDS must be positive")
	}

	if c.WorkerRunTimeoutSeconds <= 0 || c.WorkerRunTimeoutSeconds >= 60 {
		return nil, fmt.Errorf("WORKER_RUN_TIMEOUT_SECONDS must be between 1 and 59")
	}

	if c.FanoutConcurrency <= 0 {
		return nil, fmt.Errorf("FANOUT_CONCURRENCY must be positive")
	}

	if c.EnableTickLock && c.RedisAddr == "" {
		return nil, fmt.Errorf("ENABLE_TICK_LOCK requires REDIS_ADDR")
	}

	if c.EnableEmail && !c.EmailConfigured() {
		warnings = append(warnings, "email habilitado mas credenciais SMTP não configuradas")
	}

	if c.EmailConfigured() && c.SMTPFromEmail == "" {
		c.SMTPFromEmail = c.SMTPUsername
	}

	if c.FirebaseCredentialsPath == "" {
		warnings = append(warnings, "FIREBASE_CREDENTIALS_PATH vazio, push desabilitado")
	}

	return warnings, nil
}
