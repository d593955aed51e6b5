package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
)

// RPCPath is where the gateway serves JSON-RPC.
const RPCPath = "/rpc/v0"

// NewGatewayRPC dials the gateway at addr, a multiaddr or a URL, authenticating with token.
func NewGatewayRPC(ctx context.Context, addr string, token string, opts ...jsonrpc.Option) (GatewayFullNode, jsonrpc.ClientCloser, error) {
	endpoint, err := DialArgs(addr)
	if err != nil {
		return nil, nil, err
	}
	header := http.Header{}
	if len(token) > 0 {
		header.Add("Authorization", "Bearer "+token)
	}

	var res GatewayFullNodeStruct
	closer, err := jsonrpc.NewMergeClient(ctx, endpoint, "Gateway", GetInternalStructs(&res), header, opts...)
	if err != nil {
		return nil, nil, err
	}
	return &res, closer, nil
}

// DialArgs turns a listen address into the websocket endpoint of the RPC server.
func DialArgs(addr string) (string, error) {
	ma, err := multiaddr.NewMultiaddr(addr)
	if err == nil {
		_, addr, err := manet.DialArgs(ma)
		if err != nil {
			return "", err
		}

		return "ws://" + addr + RPCPath, nil
	}

	u, err := url.Parse(addr)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String() + RPCPath, nil
}
