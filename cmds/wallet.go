package cmds

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var WalletCmds = &cli.Command{
	Name:        "wallet",
	Usage:       "wallet view cmds",
	Subcommands: []*cli.Command{listViewsCmd, walletStateCmd, walletConnectCmd, walletWatchCmd},
}

var listViewsCmd = &cli.Command{
	Name:  "views",
	Usage: "list mounted wallet views",
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewGatewayClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		views, err := api.ListWalletViews(cctx.Context)
		if err != nil {
			return err
		}
		return printJSON(views)
	},
}

var walletStateCmd = &cli.Command{
	Name:  "state",
	Usage: "show the wallet view state of the session behind --token",
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewGatewayClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		state, err := api.WalletState(cctx.Context)
		if err != nil {
			return err
		}
		fmt.Println(state)
		return nil
	},
}

var walletConnectCmd = &cli.Command{
	Name:  "connect",
	Usage: "connect the injected provider of the session behind --token",
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewGatewayClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		res, err := api.WalletConnect(cctx.Context)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var walletWatchCmd = &cli.Command{
	Name:  "watch",
	Usage: "mount the wallet view of the session behind --token and print its events",
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewGatewayClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		events, err := api.WalletWatch(cctx.Context)
		if err != nil {
			return err
		}
		for event := range events {
			if err := printJSON(event); err != nil {
				return err
			}
		}
		return nil
	},
}
