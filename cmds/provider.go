package cmds

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/ipfs-force-community/rebalance-gateway/providerevent"
	"github.com/ipfs-force-community/rebalance-gateway/types"
)

var ProviderCmds = &cli.Command{
	Name:        "provider",
	Usage:       "provider bridge cmds",
	Subcommands: []*cli.Command{listProviderCmd, providerStateCmd, runProviderCmd},
}

var listProviderCmd = &cli.Command{
	Name:  "list",
	Usage: "list connected provider bridges",
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewGatewayClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		providers, err := api.ListProviderInfo(cctx.Context)
		if err != nil {
			return err
		}
		return printJSON(providers)
	},
}

var providerStateCmd = &cli.Command{
	Name:      "state",
	ArgsUsage: "<session>",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return fmt.Errorf("expect one session id")
		}
		api, closer, err := NewGatewayClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		detail, err := api.ListProviderInfoBySession(cctx.Context, cctx.Args().First())
		if err != nil {
			return err
		}
		return printJSON(detail)
	},
}

var runProviderCmd = &cli.Command{
	Name:  "run",
	Usage: "run a console provider bridge for the session behind --token",
	Description: `Accounts given with --account are offered to the session. Lines read from stdin
change what the bridge exposes:

   switch <account>...   replace the accounts
   disconnect            drop every account
   reject on|off         decline or accept the next prompts`,
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "type", Usage: "provider type to register as", Value: "ethereum"},
		&cli.StringSliceFlag{Name: "account", Usage: "account offered to the session"},
		&cli.BoolFlag{Name: "authorized", Usage: "treat the accounts as already authorized"},
	},
	Action: func(cctx *cli.Context) error {
		if len(cctx.String("token")) == 0 {
			return fmt.Errorf("a session token is required, pass --token")
		}
		api, closer, err := NewGatewayClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		ctx := cctx.Context
		provider := newConsoleProvider(cctx.StringSlice("account"), cctx.Bool("authorized"))
		client := providerevent.NewProviderEventClient(ctx, provider, api, cctx.String("type"),
			logging.Logger("provider_bridge").With())
		go client.ListenProviderRequest(ctx)
		client.WaitReady(ctx)

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if err := provider.command(scanner.Text()); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
		return scanner.Err()
	},
}

var errUserRejected = errors.New("User rejected the request.")

var _ types.IAccountsNotifier = (*consoleProvider)(nil)

// consoleProvider stands in for a browser extension. Prompts are approved unless rejection is on.
type consoleProvider struct {
	lk         sync.Mutex
	accounts   []string
	authorized bool
	reject     bool
	handlers   []func([]string)
}

func newConsoleProvider(accounts []string, authorized bool) *consoleProvider {
	return &consoleProvider{accounts: accounts, authorized: authorized}
}

func (p *consoleProvider) Accounts(ctx context.Context) ([]string, error) {
	p.lk.Lock()
	defer p.lk.Unlock()
	if !p.authorized {
		return []string{}, nil
	}
	return append([]string{}, p.accounts...), nil
}

func (p *consoleProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	p.lk.Lock()
	defer p.lk.Unlock()
	if p.reject {
		return nil, errUserRejected
	}
	p.authorized = true
	return append([]string{}, p.accounts...), nil
}

func (p *consoleProvider) OnAccountsChanged(fn func([]string)) {
	p.lk.Lock()
	defer p.lk.Unlock()
	p.handlers = append(p.handlers, fn)
}

func (p *consoleProvider) command(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	p.lk.Lock()
	switch {
	case fields[0] == "switch" && len(fields) > 1:
		p.accounts = fields[1:]
	case fields[0] == "disconnect":
		p.accounts = nil
	case fields[0] == "reject" && len(fields) == 2:
		p.reject = fields[1] == "on"
		p.lk.Unlock()
		return nil
	default:
		p.lk.Unlock()
		return fmt.Errorf("unknown command %q", line)
	}
	var accounts []string
	if p.authorized {
		accounts = append([]string{}, p.accounts...)
	}
	handlers := append([]func([]string){}, p.handlers...)
	p.lk.Unlock()

	for _, fn := range handlers {
		fn(accounts)
	}
	return nil
}
