// Package conf holds lampod's daemon configuration: defaults, the
// on-disk config file, and validation.
package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/hashicorp/go-multierror"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
)

// Conf is the daemon configuration. Every field can come from the
// config file (lampo.conf.json in the data dir) and be overridden by
// CLI flags.
type Conf struct {
	// DataDir is the root lampo directory; per-network state lives in
	// a subdirectory named after the network.
	DataDir string `mapstructure:"data-dir"`

	// Network is one of mainnet, testnet, signet, regtest.
	Network string `mapstructure:"network"`

	// Socket overrides the unix socket path the JSON-RPC server binds.
	// Empty means <data-dir>/<network>/lampod.sock.
	Socket string `mapstructure:"socket"`

	// Alias is the node alias announced alongside the node id.
	Alias string `mapstructure:"alias"`

	// LogFile enables file logging; supports {{timestamp}}, {{pid}}
	// and {{ppid}} template variables.
	LogFile string `mapstructure:"log-file"`
}

// ConfFileName is the config file looked up inside the data dir.
const ConfFileName = "lampo.conf.json"

var supportedNetworks = map[string]*chaincfg.Params{
	"mainnet": &chaincfg.MainNetParams,
	"testnet": &chaincfg.TestNet3Params,
	"signet":  &chaincfg.SigNetParams,
	"regtest": &chaincfg.RegressionNetParams,
}

// Default returns the configuration used when nothing else is given.
func Default() (*Conf, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	return &Conf{
		DataDir: filepath.Join(home, ".lampo"),
		Network: "testnet",
		Alias:   "lampo",
	}, nil
}

// Path returns the per-network state directory.
func (c *Conf) Path() string {
	return filepath.Join(c.DataDir, c.Network)
}

// SocketPath returns the unix socket path, honoring the override.
func (c *Conf) SocketPath() string {
	if c.Socket != "" {
		return c.Socket
	}
	return filepath.Join(c.Path(), "lampod.sock")
}

// ChainParams maps the configured network name onto chain parameters.
func (c *Conf) ChainParams() (*chaincfg.Params, error) {
	params, ok := supportedNetworks[c.Network]
	if !ok {
		return nil, fmt.Errorf("unsupported network %q", c.Network)
	}
	return params, nil
}

// Validate accumulates every configuration problem rather than stopping
// at the first one.
func (c *Conf) Validate() error {
	var result *multierror.Error

	if c.DataDir == "" {
		result = multierror.Append(result, fmt.Errorf("data-dir must not be empty"))
	} else if !filepath.IsAbs(c.DataDir) {
		result = multierror.Append(result, fmt.Errorf("expected absolute data-dir, got %q", c.DataDir))
	}

	if _, ok := supportedNetworks[c.Network]; !ok {
		result = multierror.Append(result, fmt.Errorf("unsupported network %q", c.Network))
	}

	if c.Alias == "" {
		result = multierror.Append(result, fmt.Errorf("alias must not be empty"))
	}

	return result.ErrorOrNil()
}

// DecodedConf carries a decoded configuration along with any keys the
// file had that the daemon does not know, so the caller can warn about
// typos instead of silently ignoring them.
type DecodedConf struct {
	Conf       *Conf
	UnusedKeys []string
}

// Decode maps a loosely typed input (a decoded JSON document) onto an
// existing configuration, leaving absent keys untouched.
func Decode(input interface{}, into *Conf) (*DecodedConf, error) {
	var md mapstructure.Metadata

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: &md,
		Result:   into,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(input); err != nil {
		return nil, err
	}

	return &DecodedConf{Conf: into, UnusedKeys: md.Unused}, nil
}

// LoadFile merges the config file at path into conf. A missing file is
// not an error: the defaults simply stand.
func LoadFile(path string, into *Conf) (*DecodedConf, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &DecodedConf{Conf: into}, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var input map[string]interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return Decode(input, into)
}
