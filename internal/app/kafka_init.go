package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
)

// initKafkaProducer поднимает producer событий заказа. Пустой список
// брокеров отключает Kafka целиком: сервис работает без событий.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	addrs := splitBrokers(brokers)
	if len(addrs) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(addrs)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", addrs).Info("kafka producer initialized")
	return producer, nil
}

// splitBrokers разбирает список вида "host1:9092, host2:9092",
// отбрасывая пустые элементы.
func splitBrokers(brokers string) []string {
	var addrs []string
	for _, part := range strings.Split(brokers, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}
