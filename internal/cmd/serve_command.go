package cmd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mitchellh/cli"

	"github.com/Truja503/lampo/internal/conf"
	lampoctx "github.com/Truja503/lampo/internal/context"
	"github.com/Truja503/lampo/internal/daemon"
	"github.com/Truja503/lampo/internal/daemon/handler"
	"github.com/Truja503/lampo/internal/jsonrpc"
	"github.com/Truja503/lampo/internal/logging"
	"github.com/Truja503/lampo/internal/pidfile"
	"github.com/Truja503/lampo/internal/rpc"
	"github.com/Truja503/lampo/internal/wallet"
)

type ServeCommand struct {
	Ui      cli.Ui
	Version string

	// flags
	dataDir       string
	network       string
	socketPath    string
	alias         string
	logFilePath   string
	envFile       string
	restoreWallet bool
}

func (c *ServeCommand) flags() *flag.FlagSet {
	fs := defaultFlagSet("serve")

	fs.StringVar(&c.dataDir, "data-dir", "", "lampo root directory, defaults to ~/.lampo")
	fs.StringVar(&c.network, "network", "", "network to run on (mainnet, testnet, signet, regtest)")
	fs.StringVar(&c.socketPath, "socket", "", "unix socket path for the JSON-RPC server,"+
		" defaults to <data-dir>/<network>/lampod.sock")
	fs.StringVar(&c.alias, "alias", "", "node alias")
	fs.StringVar(&c.logFilePath, "log-file", "", "path to a file to log into with support "+
		"for variables (e.g. timestamp, pid, ppid) via Go template syntax {{varName}}")
	fs.StringVar(&c.envFile, "env-file", "", "path to a .env file with LAMPO_* overrides")
	fs.BoolVar(&c.restoreWallet, "restore", false, "restore the wallet from a BIP39 mnemonic"+
		" instead of generating a fresh one")

	fs.Usage = func() { c.Ui.Error(c.Help()) }

	return fs
}

func (c *ServeCommand) Run(args []string) int {
	f := c.flags()
	if err := f.Parse(args); err != nil {
		c.Ui.Error(fmt.Sprintf("Error parsing command-line flags: %s", err))
		return 1
	}

	cfg, err := c.loadConf()
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	var logger *log.Logger
	if cfg.LogFile != "" {
		fl, err := logging.NewFileLogger(cfg.LogFile)
		if err != nil {
			c.Ui.Error(fmt.Sprintf("Failed to setup file logging: %s", err))
			return 1
		}
		defer fl.Close()

		logger = fl.Logger()
	} else {
		logger = logging.NewLogger(os.Stderr)
	}

	ctx, cancelFunc := lampoctx.WithSignalCancel(context.Background(), logger,
		syscall.SIGINT, syscall.SIGTERM)
	defer cancelFunc()

	if err := os.MkdirAll(cfg.Path(), 0o700); err != nil {
		c.Ui.Error(fmt.Sprintf("Failed to create data directory: %s", err))
		return 1
	}

	pid, err := pidfile.Acquire(filepath.Join(cfg.Path(), "lampod.pid"))
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Failed to lock the data directory: %s", err))
		return 1
	}
	defer pid.Release()

	w, err := c.setupWallet(cfg)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	logger.Printf("Starting lampod %s (pid %d)", c.Version, os.Getpid())
	rpc.Version = c.Version

	d := daemon.New(cfg, w)
	d.SetLogger(logger)
	if err := d.Init(); err != nil {
		c.Ui.Error(fmt.Sprintf("Failed to initialize the daemon: %s", err))
		return 1
	}

	srv := jsonrpc.NewServer(d, cfg.SocketPath())
	srv.SetLogger(logger)
	if err := rpc.RegisterAll(srv); err != nil {
		c.Ui.Error(fmt.Sprintf("Failed to register RPC methods: %s", err))
		return 1
	}
	d.AddExternalHandler(handler.NewCommandHandler(srv.Handler(), logger))

	go func() {
		<-ctx.Done()
		srv.Stop()
	}()

	c.Ui.Output(fmt.Sprintf("lampod running as %s on %s", d.Wallet().NodeID(), cfg.Network))
	if err := srv.Listen(); err != nil {
		c.Ui.Error(fmt.Sprintf("JSON-RPC server failed: %s", err))
		return 1
	}

	logger.Printf("lampod (pid %d) stopped", os.Getpid())
	return 0
}

// loadConf layers the configuration: defaults, config file, .env
// overrides, CLI flags, then validation.
func (c *ServeCommand) loadConf() (*conf.Conf, error) {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %s", err)
		}
	} else {
		// Best effort: a ./.env is picked up when present.
		_ = godotenv.Load()
	}

	cfg, err := conf.Default()
	if err != nil {
		return nil, err
	}

	if dir := os.Getenv("LAMPO_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if c.dataDir != "" {
		cfg.DataDir = c.dataDir
	}

	decoded, err := conf.LoadFile(filepath.Join(cfg.DataDir, conf.ConfFileName), cfg)
	if err != nil {
		return nil, err
	}
	for _, key := range decoded.UnusedKeys {
		c.Ui.Warn(fmt.Sprintf("Unknown config key %q ignored", key))
	}

	if network := os.Getenv("LAMPO_NETWORK"); network != "" {
		cfg.Network = network
	}
	if c.network != "" {
		cfg.Network = c.network
	}
	if c.socketPath != "" {
		cfg.Socket = c.socketPath
	}
	if c.alias != "" {
		cfg.Alias = c.alias
	}
	if c.logFilePath != "" {
		cfg.LogFile = c.logFilePath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %s", err)
	}
	return cfg, nil
}

// setupWallet restores from a prompted mnemonic or generates a fresh
// one, printing it exactly once for the user to store.
func (c *ServeCommand) setupWallet(cfg *conf.Conf) (*wallet.Wallet, error) {
	params, err := cfg.ChainParams()
	if err != nil {
		return nil, err
	}

	if c.restoreWallet {
		mnemonic, err := c.Ui.AskSecret("BIP39 mnemonic (words separated by spaces):")
		if err != nil {
			return nil, err
		}
		w, err := wallet.Restore(params, strings.TrimSpace(mnemonic))
		if err != nil {
			return nil, fmt.Errorf("failed to restore the wallet: %s", err)
		}
		return w, nil
	}

	w, mnemonic, err := wallet.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create the wallet: %s", err)
	}
	c.Ui.Warn("Wallet generated, please store these words in a safe place:")
	c.Ui.Output(mnemonic)
	return w, nil
}

func (c *ServeCommand) Help() string {
	helpText := `
Usage: lampod serve [options]

` + c.Synopsis() + "\n\n" + helpForFlags(c.flags())

	return strings.TrimSpace(helpText)
}

func (c *ServeCommand) Synopsis() string {
	return "Starts the lampo daemon and its JSON-RPC server"
}
