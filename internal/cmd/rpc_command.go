package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/mitchellh/cli"

	"github.com/Truja503/lampo/internal/conf"
)

// RpcCommand is the companion client: it dials the daemon's unix socket
// and issues a single JSON-RPC call.
type RpcCommand struct {
	Ui cli.Ui

	// flags
	dataDir    string
	network    string
	socketPath string
	timeout    time.Duration
}

func (c *RpcCommand) flags() *flag.FlagSet {
	fs := defaultFlagSet("rpc")

	fs.StringVar(&c.dataDir, "data-dir", "", "lampo root directory, defaults to ~/.lampo")
	fs.StringVar(&c.network, "network", "", "network the daemon runs on")
	fs.StringVar(&c.socketPath, "socket", "", "unix socket path of the daemon,"+
		" defaults to <data-dir>/<network>/lampod.sock")
	fs.DurationVar(&c.timeout, "timeout", 30*time.Second, "time to wait for the daemon's response")

	fs.Usage = func() { c.Ui.Error(c.Help()) }

	return fs
}

func (c *RpcCommand) Run(args []string) int {
	f := c.flags()
	if err := f.Parse(args); err != nil {
		c.Ui.Error(fmt.Sprintf("Error parsing command-line flags: %s", err))
		return 1
	}

	args = f.Args()
	if len(args) < 1 || len(args) > 2 {
		c.Ui.Error(c.Help())
		return 1
	}
	method := args[0]

	var params json.RawMessage
	if len(args) == 2 {
		if !json.Valid([]byte(args[1])) {
			c.Ui.Error(fmt.Sprintf("Params are not valid JSON: %s", args[1]))
			return 1
		}
		params = json.RawMessage(args[1])
	}

	socketPath, err := c.resolveSocket()
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	result, err := c.call(socketPath, method, params)
	if err != nil {
		if rpcErr, ok := err.(*jrpc2.Error); ok {
			c.Ui.Error(fmt.Sprintf("Error %d: %s", rpcErr.Code, rpcErr.Message))
		} else {
			c.Ui.Error(fmt.Sprintf("Call to `%s` failed: %s", method, err))
		}
		return 1
	}

	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error marshalling JSON: %s", err))
		return 1
	}
	c.Ui.Output(string(pretty))
	return 0
}

func (c *RpcCommand) resolveSocket() (string, error) {
	if c.socketPath != "" {
		return c.socketPath, nil
	}

	cfg, err := conf.Default()
	if err != nil {
		return "", err
	}
	if c.dataDir != "" {
		cfg.DataDir = c.dataDir
	}
	if c.network != "" {
		cfg.Network = c.network
	}
	return cfg.SocketPath(), nil
}

// call issues one request over a fresh connection. The daemon speaks
// naked JSON documents, one request and one response per connection,
// which is exactly jrpc2's raw JSON framing.
func (c *RpcCommand) call(socketPath, method string, params json.RawMessage) (json.RawMessage, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("cannot reach lampod at %s: %w (is the daemon running?)", socketPath, err)
	}

	client := jrpc2.NewClient(channel.RawJSON(conn, conn), nil)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var result json.RawMessage
	if err := client.CallResult(ctx, method, params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *RpcCommand) Help() string {
	helpText := `
Usage: lampod rpc [options] METHOD [PARAMS]

  Calls METHOD on the running daemon. PARAMS, when given, must be a
  single JSON document, e.g.:

    lampod rpc getinfo
    lampod rpc invoice '{"amount_msat":1000,"description":"coffee"}'

` + helpForFlags(c.flags())

	return strings.TrimSpace(helpText)
}

func (c *RpcCommand) Synopsis() string {
	return "Sends a JSON-RPC command to a running lampo daemon"
}
