package aiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	logging "github.com/ipfs/go-log/v2"
	"github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"github.com/shopspring/decimal"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"

	"github.com/ipfs-force-community/rebalance-gateway/metrics"
)

var log = logging.Logger("aiclient")

func init() {
	// the prediction service reads and writes plain JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

type RebalanceRequest struct {
	Allocation map[string]decimal.Decimal `json:"allocation"`
	Strategy   string                     `json:"strategy"`
}

type Prediction struct {
	Token    string          `json:"token"`
	Return7d decimal.Decimal `json:"return_7d"`
}

type RebalanceResponse struct {
	Predictions   []Prediction               `json:"predictions"`
	NewAllocation map[string]decimal.Decimal `json:"new_allocation"`
}

// Client talks to the AI prediction service.
type Client struct {
	cli *resty.Client
}

// NewClient accepts the service address as a URL or a multiaddr.
func NewClient(address string, timeout time.Duration) (*Client, error) {
	u, err := parseAddr(address)
	if err != nil {
		return nil, err
	}
	client := resty.New().
		SetHostURL(u.String()).
		SetRetryCount(0).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{cli: client}, nil
}

// Rebalance asks the service for predictions and a new allocation.
func (c *Client) Rebalance(ctx context.Context, req *RebalanceRequest) (*RebalanceResponse, error) {
	start := time.Now()
	res := new(RebalanceResponse)
	resp, err := c.cli.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(res).
		Post("/rebalance")
	record(ctx, "rebalance", start)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		log.Warnf("rebalance responded %d: %s", resp.StatusCode(), resp.Body())
		return nil, fmt.Errorf("Request failed with status code %d", resp.StatusCode())
	}
	return res, nil
}

// Strategies returns the service's strategy list untouched.
func (c *Client) Strategies(ctx context.Context) (json.RawMessage, error) {
	start := time.Now()
	resp, err := c.cli.R().
		SetContext(ctx).
		Get("/strategies")
	record(ctx, "strategies", start)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		log.Warnf("strategies responded %d: %s", resp.StatusCode(), resp.Body())
		return nil, fmt.Errorf("Request failed with status code %d", resp.StatusCode())
	}
	if !json.Valid(resp.Body()) {
		return nil, fmt.Errorf("invalid strategies response")
	}
	return json.RawMessage(resp.Body()), nil
}

func record(ctx context.Context, method string, start time.Time) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(metrics.MethodKey, method)},
		metrics.AIRequest.M(metrics.SinceInMilliseconds(start)))
}

func parseAddr(address string) (*url.URL, error) {
	ma, err := multiaddr.NewMultiaddr(address)
	if err == nil {
		_, addr, err := manet.DialArgs(ma)
		if err != nil {
			return nil, fmt.Errorf("parser libp2p url fail %w", err)
		}

		_, err = ma.ValueForProtocol(multiaddr.P_HTTPS)
		switch {
		case err == nil:
			address = "https://" + addr
		case err == multiaddr.ErrProtocolNotFound:
			address = "http://" + addr
		default:
			return nil, err
		}
	}

	return url.Parse(address)
}
