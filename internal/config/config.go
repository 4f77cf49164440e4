package config

import (
	"os"
	"strconv"
	"time"
)

// ServerConfig holds settings for the forum server runtime.
type ServerConfig struct {
	ListenAddr string
	LogLevel   string
	Database   DatabaseConfig
	Session    SessionConfig
	HTTP       HTTPConfig
	Index      IndexConfig
}

// ConsoleConfig holds settings for the terminal request console.
type ConsoleConfig struct {
	ServerAddr string
}

// DatabaseConfig captures storage configuration.
type DatabaseConfig struct {
	Path string
}

// SessionConfig defines cookie session parameters.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
}

// HTTPConfig tunes the raw socket transport.
type HTTPConfig struct {
	// AcceptPoll bounds how long a single accept attempt waits for a
	// pending connection before giving up without error.
	AcceptPoll time.Duration
	// BufferSendDelay is the pause between sending chunks of page data.
	BufferSendDelay time.Duration
	// ClientTimeout is the max time for a client to accept transmitted data.
	ClientTimeout time.Duration
	// ReadBufferBytes is the fixed receive buffer for a request.
	ReadBufferBytes int
	// SendChunkBytes is the size of each paced write.
	SendChunkBytes int
}

// IndexConfig controls thread index pagination.
type IndexConfig struct {
	PageSize int
}

// LoadServerConfig builds the server configuration from environment variables with sensible defaults.
func LoadServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr: envOrDefault("NDSCORE_LISTEN_ADDR", ":8080"),
		LogLevel:   envOrDefault("NDSCORE_LOG_LEVEL", "info"),
		Database:   DatabaseConfig{Path: envOrDefault("NDSCORE_DB_PATH", "ndscore.db")},
		Session: SessionConfig{
			CookieName: envOrDefault("NDSCORE_COOKIE_NAME", "nds_core_auth"),
			TTL:        envDuration("NDSCORE_SESSION_TTL", 24*time.Hour),
		},
		HTTP: HTTPConfig{
			AcceptPoll:      envDuration("NDSCORE_ACCEPT_POLL", 100*time.Millisecond),
			BufferSendDelay: envDuration("NDSCORE_BUFFER_SEND_DELAY", 10*time.Millisecond),
			ClientTimeout:   envDuration("NDSCORE_CLIENT_TIMEOUT", time.Second),
			ReadBufferBytes: envInt("NDSCORE_READ_BUFFER_BYTES", 4096),
			SendChunkBytes:  envInt("NDSCORE_SEND_CHUNK_BYTES", 1024),
		},
		Index: IndexConfig{PageSize: envInt("NDSCORE_INDEX_PAGE_SIZE", 20)},
	}
}

// LoadConsoleConfig builds the console configuration from environment variables.
func LoadConsoleConfig() ConsoleConfig {
	return ConsoleConfig{
		ServerAddr: envOrDefault("NDSCORE_SERVER_ADDR", "localhost:8080"),
	}
}

func envOrDefault(key, value string) string {
	if env, ok := os.LookupEnv(key); ok {
		return env
	}
	return value
}

func envDuration(key string, def time.Duration) time.Duration {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(env); err == nil {
			return parsed
		}
	}
	return def
}

func envInt(key string, def int) int {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(env); err == nil {
			return parsed
		}
	}
	return def
}
