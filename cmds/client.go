package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"

	"github.com/ipfs-force-community/rebalance-gateway/api"
	"github.com/ipfs-force-community/rebalance-gateway/auth"
)

// NewGatewayClient dials the gateway with the --token flag, or with the admin token of the repo.
func NewGatewayClient(cctx *cli.Context) (api.GatewayFullNode, jsonrpc.ClientCloser, error) {
	token := cctx.String("token")
	if len(token) == 0 {
		repo, err := homedir.Expand(cctx.String("repo"))
		if err != nil {
			return nil, nil, err
		}
		if token, err = auth.ReadToken(repo); err != nil {
			return nil, nil, fmt.Errorf("read admin token: %w", err)
		}
	}
	return api.NewGatewayRPC(cctx.Context, cctx.String("listen"), token)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, " ", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
