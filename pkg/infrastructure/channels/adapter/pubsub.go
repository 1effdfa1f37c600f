package adapter

import (
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/mateusmacedo/bus-storefront/pkg/application"
	watermillAdapter "github.com/mateusmacedo/bus-storefront/pkg/infrastructure/watermill/adapter"
)

// NewGoChannel builds the in-process pub/sub used by the channels transport.
// Publish blocks until subscribers ack so commands are handled before the
// dispatcher returns.
func NewGoChannel(logger application.AppLogger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            64,
		BlockPublishUntilSubscriberAck: true,
	}, watermillAdapter.NewWatermillLoggerAdapter(logger))
}
