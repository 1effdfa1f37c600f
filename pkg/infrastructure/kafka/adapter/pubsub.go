package adapter

import (
	"github.com/Shopify/sarama"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"

	"github.com/mateusmacedo/bus-storefront/pkg/application"
	watermillAdapter "github.com/mateusmacedo/bus-storefront/pkg/infrastructure/watermill/adapter"
)

type Options struct {
	Brokers       []string
	ConsumerGroup string
	ClientID      string
}

func subscriberSaramaConfig(opts Options) *sarama.Config {
	saramaConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaConfig.Version = sarama.V1_0_0_0
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.ClientID = opts.ClientID
	return saramaConfig
}

func NewKafkaPubSub(opts Options, logger application.AppLogger) (*kafka.Publisher, *kafka.Subscriber, error) {
	wlogger := watermillAdapter.NewWatermillLoggerAdapter(logger)
	marshaler := kafka.DefaultMarshaler{}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   opts.Brokers,
		Marshaler: marshaler,
	}, wlogger)
	if err != nil {
		return nil, nil, err
	}

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               opts.Brokers,
		Unmarshaler:           marshaler,
		ConsumerGroup:         opts.ConsumerGroup,
		OverwriteSaramaConfig: subscriberSaramaConfig(opts),
		InitializeTopicDetails: &sarama.TopicDetail{
			NumPartitions:     1,
			ReplicationFactor: 1,
		},
	}, wlogger)
	if err != nil {
		_ = publisher.Close()
		return nil, nil, err
	}

	return publisher, subscriber, nil
}
