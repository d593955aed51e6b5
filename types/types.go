package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RequestEvent is pushed from the gateway down to a provider bridge.
type RequestEvent struct {
	ID         uuid.UUID
	Method     string
	Payload    []byte
	CreateTime time.Time           `json:"-"`
	Result     chan *ResponseEvent `json:"-"`
}

// ResponseEvent is sent back by the provider bridge to complete a RequestEvent.
type ResponseEvent struct {
	ID      uuid.UUID
	Payload []byte
	Error   string
}

// ConnectedCompleted is the payload of the first event on a new channel.
type ConnectedCompleted struct {
	ChannelId uuid.UUID
}

type ChannelInfo struct {
	ChannelId  uuid.UUID
	Ip         string
	OutBound   chan<- *RequestEvent
	CreateTime time.Time

	ctx context.Context
}

func NewChannelInfo(ctx context.Context, ip string, sendEvents chan<- *RequestEvent) *ChannelInfo {
	return &ChannelInfo{
		ChannelId:  uuid.New(),
		OutBound:   sendEvents,
		Ip:         ip,
		CreateTime: time.Now(),
		ctx:        ctx,
	}
}

// Done is closed once the connection that owns the channel has gone away.
func (c *ChannelInfo) Done() <-chan struct{} {
	return c.ctx.Done()
}
