// Package server implements the table supervisor of spec §4.6: HTTP/websocket
// listener, HCL configuration with POKER_* env var and CLI overrides,
// periodic stage-refresh task, and graceful shutdown. Grounded on the
// teacher's internal/server/config.go HCL loading shape, re-targeted from
// table/bot blocks onto this service's POKER_* knobs.
package server

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config holds every tunable named in spec §6, loadable from an HCL file,
// then overridden by POKER_* environment variables, then by explicit CLI
// flags (applied by cmd/pokerserver).
type Config struct {
	ServerAddr            string `hcl:"server_addr,optional"`
	MaxPlayerChips        int    `hcl:"max_player_chips,optional"`
	StartingChips         int    `hcl:"starting_chips,optional"`
	SmallBlind            int    `hcl:"small_blind,optional"`
	BigBlind              int    `hcl:"big_blind,optional"`
	MaxMessageSize        int    `hcl:"max_message_size,optional"`
	InactivityTimeoutMS   int    `hcl:"inactivity_timeout_ms,optional"`
	MaxConnections        int    `hcl:"max_connections,optional"`
	MaxConnectionsPerIP   int    `hcl:"max_connections_per_ip,optional"`
	SessionTokenExpiryHrs int    `hcl:"session_token_expiry_hours,optional"`
	MaxBetPerHand         int    `hcl:"max_bet_per_hand,optional"`
	EnableHMAC            bool   `hcl:"enable_hmac,optional"`
	HMACKey               string `hcl:"hmac_key,optional"`
}

// hclRoot is the top-level HCL document shape: a single unlabeled "server"
// block holding Config's fields.
type hclRoot struct {
	Server Config `hcl:"server,block"`
}

// DefaultConfig returns spec §6's documented defaults.
func DefaultConfig() Config {
	return Config{
		ServerAddr:            "127.0.0.1:8080",
		MaxPlayerChips:        1_000_000,
		StartingChips:         1000,
		SmallBlind:            5,
		BigBlind:              10,
		MaxMessageSize:        4096,
		InactivityTimeoutMS:   600_000,
		MaxConnections:        100,
		MaxConnectionsPerIP:   5,
		SessionTokenExpiryHrs: 24,
		MaxBetPerHand:         100_000,
		EnableHMAC:            false,
		HMACKey:               "",
	}
}

// LoadConfig reads an HCL file into Config, falling back to defaults for any
// field the file leaves unset. A missing file is not an error; it simply
// yields defaults (spec §6 treats every setting as optional).
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("server: parse HCL file: %s", diags.Error())
	}

	root := hclRoot{Server: cfg}
	diags = gohcl.DecodeBody(file.Body, nil, &root)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("server: decode HCL: %s", diags.Error())
	}

	return root.Server, nil
}

// ApplyEnvOverrides mutates cfg in place with any POKER_* variable present
// in the process environment (spec §6).
func (c *Config) ApplyEnvOverrides() {
	overrideString(&c.ServerAddr, "POKER_SERVER_ADDR")
	overrideInt(&c.MaxPlayerChips, "POKER_MAX_PLAYER_CHIPS")
	overrideInt(&c.StartingChips, "POKER_STARTING_CHIPS")
	overrideInt(&c.SmallBlind, "POKER_SMALL_BLIND")
	overrideInt(&c.BigBlind, "POKER_BIG_BLIND")
	overrideInt(&c.MaxMessageSize, "POKER_MAX_MESSAGE_SIZE")
	overrideInt(&c.InactivityTimeoutMS, "POKER_INACTIVITY_TIMEOUT_MS")
	overrideInt(&c.MaxConnections, "POKER_MAX_CONNECTIONS")
	overrideInt(&c.MaxConnectionsPerIP, "POKER_MAX_CONNECTIONS_PER_IP")
	overrideInt(&c.SessionTokenExpiryHrs, "POKER_SESSION_TOKEN_EXPIRY_HOURS")
	overrideInt(&c.MaxBetPerHand, "POKER_MAX_BET_PER_HAND")
	overrideBool(&c.EnableHMAC, "POKER_ENABLE_HMAC")
	overrideString(&c.HMACKey, "POKER_HMAC_KEY")
}

func overrideString(dst *string, env string) {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, env string) {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func overrideBool(dst *bool, env string) {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Validate checks the loaded configuration is internally consistent.
func (c Config) Validate() error {
	if c.BigBlind <= c.SmallBlind {
		return fmt.Errorf("server: big blind must exceed small blind")
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("server: max connections must be positive")
	}
	if c.MaxConnectionsPerIP <= 0 {
		return fmt.Errorf("server: max connections per ip must be positive")
	}
	if c.EnableHMAC && c.HMACKey == "" {
		return fmt.Errorf("server: enable_hmac requires hmac_key (POKER_HMAC_KEY) to be set")
	}
	return nil
}

func (c Config) sessionTokenExpiry() time.Duration {
	return time.Duration(c.SessionTokenExpiryHrs) * time.Hour
}

func (c Config) inactivityTimeout() time.Duration {
	return time.Duration(c.InactivityTimeoutMS) * time.Millisecond
}
