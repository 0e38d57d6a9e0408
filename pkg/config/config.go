// Package config provides the layered configuration loader for photond:
// command-line flags override environment variables, which override the
// config file, which overrides built-in defaults. Grounded on the
// viper-based pkg/config/config.go pattern and
// original_source/src/settings.rs's identical four-tier precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cashweb/photon-go/pkg/perr"
)

// BitcoinConfig holds the node RPC and pub-sub connection settings.
type BitcoinConfig struct {
	Host         string `mapstructure:"host"`
	RPCPort      int    `mapstructure:"rpc_port"`
	TLS          bool   `mapstructure:"tls"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	ZMQBlockAddr string `mapstructure:"zmq_block_addr"`
	ZMQTxAddr    string `mapstructure:"zmq_tx_addr"`
}

// TLSConfig holds the client-facing TLS certificate material; both-or-
// neither enables TLS on the gateway.
type TLSConfig struct {
	PEMPath string `mapstructure:"pem_path"`
	KeyPath string `mapstructure:"key_path"`
}

// Config is the process-wide configuration snapshot, constructed once at
// startup and passed explicitly into every component that needs it — no
// ambient globals, per the design notes.
type Config struct {
	Bind            string        `mapstructure:"bind"`
	Banner          string        `mapstructure:"banner"`
	DonationAddress string        `mapstructure:"donation_address"`
	Bitcoin         BitcoinConfig `mapstructure:"bitcoin"`
	DBPath          string        `mapstructure:"db_path"`
	TLS             TLSConfig     `mapstructure:"tls"`
	Resync          bool          `mapstructure:"resync"`
	SyncFrom        int64         `mapstructure:"sync_from"`
}

// Enabled reports whether both TLS fields are set.
func (t TLSConfig) Enabled() bool {
	return t.PEMPath != "" && t.KeyPath != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bind", "127.0.0.1:50051")
	v.SetDefault("banner", "Photon indexer")
	v.SetDefault("donation_address", "")
	v.SetDefault("bitcoin.host", "127.0.0.1")
	v.SetDefault("bitcoin.rpc_port", 8332)
	v.SetDefault("bitcoin.tls", false)
	v.SetDefault("bitcoin.zmq_block_addr", "tcp://127.0.0.1:28332")
	v.SetDefault("bitcoin.zmq_tx_addr", "tcp://127.0.0.1:28333")
	v.SetDefault("db_path", "$HOME/.photon/db")
	v.SetDefault("resync", false)
	v.SetDefault("sync_from", -1)
}

// Load builds a Config from, highest to lowest precedence: flags (bound
// from the given set, when non-nil), environment variables prefixed
// "photon_", a "config.*" file searched in "." and "$HOME/.photon", and
// built-in defaults.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.photon")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, perr.Wrap(perr.Config, fmt.Errorf("read config file: %w", err))
		}
	}

	v.SetEnvPrefix("photon")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, perr.Wrap(perr.Config, fmt.Errorf("bind flags: %w", err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, perr.Wrap(perr.Config, fmt.Errorf("unmarshal config: %w", err))
	}
	return &cfg, nil
}
