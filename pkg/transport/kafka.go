package transport

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"Storefront-Analytics-Bridge/pkg/events"
)

// HeaderEventType names the signal when the envelope does not.
const HeaderEventType = "event-type"

// messageReader is the part of *kafka.Reader the source uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource consumes signal envelopes from a topic as part of a consumer
// group. Offsets are committed after each message is handed to the bus.
type KafkaSource struct {
	reader  messageReader
	pub     Publisher
	log     *logrus.Entry
	backoff time.Duration
}

// NewKafkaSource creates a consumer-group reader for topic.
func NewKafkaSource(brokers []string, topic, groupID string, pub Publisher, log *logrus.Entry) *KafkaSource {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    1e6, // 1MB
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
		Logger:      kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(log.Errorf),
	})
	return newKafkaSource(reader, pub, log)
}

func newKafkaSource(reader messageReader, pub Publisher, log *logrus.Entry) *KafkaSource {
	return &KafkaSource{reader: reader, pub: pub, log: log, backoff: time.Second}
}

// Run consumes until ctx is done. It returns ctx's error.
func (s *KafkaSource) Run(ctx context.Context) error {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			s.log.WithError(err).Error("Kafka consumer error fetching message")
			select {
			case <-time.After(s.backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		s.handle(msg)

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			s.log.WithError(err).Error("Kafka consumer error committing offset")
		}
	}
}

// Close closes the reader.
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

func (s *KafkaSource) handle(msg kafka.Message) {
	l := s.log.WithFields(logrus.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	env, err := events.Decode(msg.Value, events.Name(headerValue(msg.Headers, HeaderEventType)))
	if err != nil {
		l.WithError(err).Error("Failed to decode signal")
		return
	}
	if err := forward(s.pub, env); err != nil {
		if errors.Is(err, ErrUnknownSignal) {
			l.WithError(err).Debug("Ignoring signal")
			return
		}
		l.WithError(err).Warn("Failed to enqueue signal")
	}
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
