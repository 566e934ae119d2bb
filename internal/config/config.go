package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-duel/internal/domain"
	"github.com/park285/cheese-duel/internal/wire"
)

// Carrier selects how frames travel between the two processes.
type Carrier string

const (
	CarrierTCP       Carrier = "tcp"
	CarrierWebSocket Carrier = "ws"
)

type AppConfig struct {
	Port       int
	ListenHost string
	Carrier    Carrier
	WSPath     string

	HostColor      domain.ColorChoice
	MaxFrameSize   int
	VerifySnapshot bool
	DialTimeout    time.Duration

	BoardPNGDir   string
	ResultWebhook string
	MessagesDir   string
	PlayerName    string
}

// ListenAddr is the host:port the host side binds.
func (c *AppConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.Port)
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:         5000,
		ListenHost:   "0.0.0.0",
		Carrier:      CarrierTCP,
		WSPath:       "/duel",
		HostColor:    domain.ColorWhite,
		MaxFrameSize: wire.DefaultMaxFrameSize,
		DialTimeout:  10 * time.Second,
		PlayerName:   "player",
	}

	if v := strings.TrimSpace(os.Getenv("DUEL_PORT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 65535 {
			return nil, fmt.Errorf("DUEL_PORT must be 1-65535, got %q", v)
		}
		cfg.Port = n
	}
	if v := strings.TrimSpace(os.Getenv("DUEL_LISTEN_HOST")); v != "" {
		cfg.ListenHost = v
	}
	if v := strings.TrimSpace(os.Getenv("DUEL_TRANSPORT")); v != "" {
		switch Carrier(strings.ToLower(v)) {
		case CarrierTCP:
			cfg.Carrier = CarrierTCP
		case CarrierWebSocket, "websocket":
			cfg.Carrier = CarrierWebSocket
		default:
			return nil, fmt.Errorf("DUEL_TRANSPORT must be tcp or ws, got %q", v)
		}
	}
	if v := strings.TrimSpace(os.Getenv("DUEL_WS_PATH")); v != "" {
		if !strings.HasPrefix(v, "/") {
			v = "/" + v
		}
		cfg.WSPath = v
	}
	if v := strings.TrimSpace(os.Getenv("DUEL_HOST_COLOR")); v != "" {
		switch strings.ToLower(v) {
		case "white", "w", "black", "b", "random":
			cfg.HostColor = domain.ParseColorChoice(v)
		default:
			return nil, fmt.Errorf("DUEL_HOST_COLOR must be white, black or random, got %q", v)
		}
	}
	if v := strings.TrimSpace(os.Getenv("DUEL_MAX_FRAME")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 256 {
			return nil, fmt.Errorf("DUEL_MAX_FRAME must be an integer >= 256, got %q", v)
		}
		cfg.MaxFrameSize = n
	}
	if v := strings.TrimSpace(os.Getenv("DUEL_VERIFY_SNAPSHOTS")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("DUEL_VERIFY_SNAPSHOTS: %w", err)
		}
		cfg.VerifySnapshot = b
	}
	if v := strings.TrimSpace(os.Getenv("DUEL_DIAL_TIMEOUT_SEC")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("DUEL_DIAL_TIMEOUT_SEC must be a positive integer, got %q", v)
		}
		cfg.DialTimeout = time.Duration(n) * time.Second
	}

	cfg.BoardPNGDir = strings.TrimSpace(os.Getenv("DUEL_BOARD_PNG_DIR"))
	cfg.ResultWebhook = strings.TrimSpace(os.Getenv("DUEL_RESULT_WEBHOOK"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("DUEL_MESSAGES_DIR"))
	if v := strings.TrimSpace(os.Getenv("DUEL_PLAYER_NAME")); v != "" {
		cfg.PlayerName = v
	}

	if cfg.ResultWebhook != "" && !strings.HasPrefix(cfg.ResultWebhook, "http://") && !strings.HasPrefix(cfg.ResultWebhook, "https://") {
		return nil, errors.New("DUEL_RESULT_WEBHOOK must be an http(s) URL")
	}
	return cfg, nil
}
