package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"Storefront-Analytics-Bridge/pkg/hits"
)

var (
	// ErrPublisherStopping is returned by Publish after Stop.
	ErrPublisherStopping = errors.New("hit publisher is stopping")
	// ErrPublisherQueueFull is returned by Publish when the task queue is full.
	ErrPublisherQueueFull = errors.New("hit publisher task queue full")
)

// HitMessage is the JSON document published for each hit.
// Ensure all fields are exported for JSON serialization.
type HitMessage struct {
	TrackingID string          `json:"trackingId"` // Collector property the hit belongs to.
	Type       hits.Type       `json:"type"`       // Hit kind, also the last subject token.
	Hit        json.RawMessage `json:"hit"`        // The hit itself.
	SentAt     time.Time       `json:"sentAt"`     // Timestamp when the bridge emitted the hit.
}

// jetStream is the part of nats.JetStreamContext the sink uses.
type jetStream interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	PublishMsgAsync(m *nats.Msg, opts ...nats.PubOpt) (nats.PubAckFuture, error)
}

// publishTask holds one NATS message waiting to be published.
type publishTask struct {
	subject string // NATS subject to publish to.
	data    []byte // Message payload.
}

// HitPublisher publishes messages to JetStream asynchronously. A fixed pool
// of handler goroutines drains a bounded task queue and waits for each
// PubAck. Failed publishes are logged and dropped; there is no retry.
type HitPublisher struct {
	js          jetStream         // NATS JetStream context.
	taskChan    chan *publishTask // Channel to queue messages for publishing.
	wg          sync.WaitGroup    // WaitGroup to manage handler goroutines.
	quitChan    chan struct{}     // Channel to signal handlers to stop.
	stopOnce    sync.Once
	ackTimeout  time.Duration // Max time to wait for a PubAck.
	numHandlers int           // Number of concurrent ACK handler goroutines.
	log         *logrus.Entry
}

// NewHitPublisher creates a HitPublisher. Call Start to launch the handlers.
func NewHitPublisher(js jetStream, numHandlers, queueSize int, ackTimeout time.Duration, log *logrus.Entry) *HitPublisher {
	return &HitPublisher{
		js:          js,
		taskChan:    make(chan *publishTask, queueSize),
		quitChan:    make(chan struct{}),
		ackTimeout:  ackTimeout,
		numHandlers: numHandlers,
		log:         log,
	}
}

// Start launches the ACK handler goroutines.
func (p *HitPublisher) Start() {
	p.wg.Add(p.numHandlers)
	for i := 0; i < p.numHandlers; i++ {
		go p.ackHandler(i)
	}
	p.log.Infof("HitPublisher started with %d ACK handler goroutines", p.numHandlers)
}

// Publish queues a message without blocking.
func (p *HitPublisher) Publish(subject string, data []byte) error {
	task := &publishTask{subject: subject, data: data}

	select {
	case <-p.quitChan:
		p.log.Warnf("HitPublisher: Publish called after Stop. Subject: %s", subject)
		return ErrPublisherStopping
	default:
	}

	select {
	case p.taskChan <- task:
		return nil
	default:
		p.log.Warnf("HitPublisher: Task channel full. Subject: %s. Consider increasing PUBLISH_TASK_QUEUE_SIZE or PUBLISH_GOROUTINES.", subject)
		return ErrPublisherQueueFull
	}
}

// Stop signals the handlers to drain the queue and waits for them.
func (p *HitPublisher) Stop() {
	p.stopOnce.Do(func() {
		p.log.Info("Stopping HitPublisher...")
		close(p.quitChan)
		p.wg.Wait()
		p.log.Info("HitPublisher stopped.")
	})
}

func (p *HitPublisher) ackHandler(id int) {
	defer p.wg.Done()
	for {
		select {
		case task := <-p.taskChan:
			p.processPublishTask(task, id)
		case <-p.quitChan:
			// Drain remaining tasks before exiting.
			for {
				select {
				case task := <-p.taskChan:
					p.processPublishTask(task, id)
				default:
					return
				}
			}
		}
	}
}

func (p *HitPublisher) processPublishTask(task *publishTask, handlerID int) {
	l := p.log.WithFields(logrus.Fields{
		"handler_id": handlerID,
		"subject":    task.subject,
		"msg_size":   len(task.data),
	})

	ackFuture, err := p.js.PublishMsgAsync(&nats.Msg{Subject: task.subject, Data: task.data})
	if err != nil {
		l.WithError(err).Error("HitPublisher: PublishMsgAsync call failed. Dropping hit.")
		return
	}

	timer := time.NewTimer(p.ackTimeout)
	defer timer.Stop()

	select {
	case pa := <-ackFuture.Ok():
		l.WithFields(logrus.Fields{
			"stream":   pa.Stream,
			"sequence": pa.Sequence,
		}).Debug("HitPublisher: Hit published and ACKed.")
	case pubErr := <-ackFuture.Err():
		l.WithError(pubErr).Warn("HitPublisher: Publish failed (NACK or server error). Dropping hit.")
	case <-timer.C:
		l.Warn("HitPublisher: Timed out waiting for ACK. Dropping hit.")
	}
}

// JetStreamOption configures a JetStream sink.
type JetStreamOption func(*JetStream)

// WithPublisherPool sets the ACK handler count and task queue size.
func WithPublisherPool(handlers, queueSize int) JetStreamOption {
	return func(s *JetStream) {
		s.handlers = handlers
		s.queueSize = queueSize
	}
}

// WithAckTimeout sets the PubAck wait. Default: 5s.
func WithAckTimeout(d time.Duration) JetStreamOption {
	return func(s *JetStream) { s.ackTimeout = d }
}

// WithJetStreamLogger sets the logger.
func WithJetStreamLogger(l *logrus.Entry) JetStreamOption {
	return func(s *JetStream) { s.log = l }
}

// JetStream publishes hits as JSON onto the "<stream>.hits.<type>" subjects
// of a JetStream stream, for consumers that forward them to the collector.
type JetStream struct {
	js         jetStream
	stream     string
	handlers   int
	queueSize  int
	ackTimeout time.Duration
	log        *logrus.Entry

	mu         sync.RWMutex
	trackingID string
	publisher  *HitPublisher
}

// NewJetStream creates a sink publishing into stream.
func NewJetStream(js jetStream, stream string, opts ...JetStreamOption) *JetStream {
	s := &JetStream{
		js:         js,
		stream:     stream,
		handlers:   4,
		queueSize:  4096,
		ackTimeout: defaultTimeout,
		log:        logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HitSubject returns the subject a hit of type t is published on.
func HitSubject(stream string, t hits.Type) string {
	return stream + ".hits." + string(t)
}

// Init ensures the hit stream exists and starts the publisher.
func (s *JetStream) Init(_ context.Context, trackingID string) error {
	_, err := s.js.StreamInfo(s.stream)
	if err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return fmt.Errorf("jetstream: stream info %s: %w", s.stream, err)
		}
		s.log.Infof("Stream %s not found, creating...", s.stream)
		_, err = s.js.AddStream(&nats.StreamConfig{
			Name:     s.stream,
			Subjects: []string{s.stream + ".hits.*"},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			return fmt.Errorf("jetstream: create stream %s: %w", s.stream, err)
		}
		s.log.Infof("Stream %s created", s.stream)
	}

	publisher := NewHitPublisher(s.js, s.handlers, s.queueSize, s.ackTimeout, s.log)
	publisher.Start()

	s.mu.Lock()
	s.trackingID = trackingID
	s.publisher = publisher
	s.mu.Unlock()
	return nil
}

// Send queues one hit for publishing.
func (s *JetStream) Send(_ context.Context, hit hits.Hit) error {
	s.mu.RLock()
	publisher, trackingID := s.publisher, s.trackingID
	s.mu.RUnlock()
	if publisher == nil {
		return ErrNotInitialized
	}

	body, err := json.Marshal(hit)
	if err != nil {
		return fmt.Errorf("jetstream: marshal hit: %w", err)
	}
	data, err := json.Marshal(HitMessage{
		TrackingID: trackingID,
		Type:       hit.HitType(),
		Hit:        body,
		SentAt:     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("jetstream: marshal message: %w", err)
	}
	return publisher.Publish(HitSubject(s.stream, hit.HitType()), data)
}

// Close stops the publisher after draining queued hits.
func (s *JetStream) Close() error {
	s.mu.RLock()
	publisher := s.publisher
	s.mu.RUnlock()
	if publisher != nil {
		publisher.Stop()
	}
	return nil
}
