package adapter

import (
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/mateusmacedo/bus-storefront/pkg/application"
	watermillAdapter "github.com/mateusmacedo/bus-storefront/pkg/infrastructure/watermill/adapter"
)

type Options struct {
	Addr          string
	Password      string
	DB            int
	ConsumerGroup string
	Consumer      string
}

func NewRedisClient(opts Options) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// NewStreamPubSub returns a redis-stream publisher and a consumer-group subscriber
// sharing one client.
func NewStreamPubSub(client redis.UniversalClient, opts Options, logger application.AppLogger) (*redisstream.Publisher, *redisstream.Subscriber, error) {
	wlogger := watermillAdapter.NewWatermillLoggerAdapter(logger)

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, wlogger)
	if err != nil {
		return nil, nil, err
	}

	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        client,
		ConsumerGroup: opts.ConsumerGroup,
		Consumer:      opts.Consumer,
	}, wlogger)
	if err != nil {
		_ = publisher.Close()
		return nil, nil, err
	}

	return publisher, subscriber, nil
}
