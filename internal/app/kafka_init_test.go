package app

import (
	"reflect"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSplitBrokers(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: " , ,", want: nil},
		{in: "kafka-1:9092", want: []string{"kafka-1:9092"}},
		{in: "kafka-1:9092, kafka-2:9092", want: []string{"kafka-1:9092", "kafka-2:9092"}},
	}

	for _, tc := range cases {
		if got := splitBrokers(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitBrokers(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestInitKafkaProducer_DisabledWithoutBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	producer, err := initKafkaProducer("", logger)
	if err != nil {
		t.Fatalf("empty broker list must not be an error, got %v", err)
	}
	if producer != nil {
		t.Fatal("expected kafka to stay disabled without brokers")
	}
}

func TestInitKafkaProducer_UnreachableBroker(t *testing.T) {
	logger := log.WithField("test", "kafka")

	producer, err := initKafkaProducer("invalid-broker:9999", logger)
	if err == nil {
		t.Fatal("expected connection error for unreachable broker")
	}
	if producer != nil {
		t.Fatal("expected nil producer on error")
	}
}

func TestCloseKafka_NilProducerIsNoop(t *testing.T) {
	closeKafka(nil, log.WithField("test", "kafka"))
}
