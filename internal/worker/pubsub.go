package worker

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Disposition says what to do with a received message.
type Disposition int

const (
	// Ack removes the message: the job succeeded or can never succeed.
	Ack Disposition = iota
	// Nack asks for redelivery after a transient failure.
	Nack
)

func (d Disposition) String() string {
	if d == Ack {
		return "ack"
	}
	return "nack"
}

// Handler decides the fate of one job message.
type Handler struct {
	processor JobProcessor
	logger    zerolog.Logger
}

// NewHandler creates a Handler.
func NewHandler(processor JobProcessor, logger zerolog.Logger) *Handler {
	return &Handler{processor: processor, logger: logger}
}

// Handle decodes and processes one message.
func (h *Handler) Handle(ctx context.Context, id string, data []byte) Disposition {
	start := time.Now()
	logger := h.logger.With().Str("message_id", id).Logger()

	var job ReportJob
	if err := json.Unmarshal(data, &job); err != nil {
		// Redelivering a malformed message cannot help.
		logger.Error().Err(err).Msg("failed to parse report job")
		return Ack
	}
	if job.JobID == "" {
		job.JobID = id
	}
	logger = logger.With().Str("job_id", job.JobID).Logger()

	rep, err := h.processor.Process(ctx, job)
	switch {
	case err == nil:
		logger.Info().
			Str("location", rep.Location).
			Dur("duration", time.Since(start)).
			Msg("report job completed")
		return Ack
	case Permanent(err):
		logger.Error().Err(err).Msg("report job failed permanently")
		return Ack
	default:
		logger.Warn().Err(err).Msg("report job failed, will be redelivered")
		return Nack
	}
}

// SubscriberConfig holds configuration for the Pub/Sub subscriber.
type SubscriberConfig struct {
	ProjectID        string
	SubscriptionName string
	Processor        JobProcessor
	Logger           zerolog.Logger

	// Concurrency bounds outstanding messages. Default: 2
	Concurrency int
}

// Subscriber receives report jobs from a Pub/Sub subscription.
type Subscriber struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	handler          *Handler
	logger           zerolog.Logger
}

// NewSubscriber connects to Pub/Sub.
func NewSubscriber(ctx context.Context, cfg SubscriberConfig) (*Subscriber, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	sub := client.Subscriber(cfg.SubscriptionName)
	sub.ReceiveSettings.MaxOutstandingMessages = cfg.Concurrency
	sub.ReceiveSettings.NumGoroutines = 1
	// Jobs wait on CDS queues, so leases are extended for a long time.
	sub.ReceiveSettings.MaxExtension = 4 * time.Hour

	return &Subscriber{
		client:           client,
		subscriber:       sub,
		subscriptionName: cfg.SubscriptionName,
		handler:          NewHandler(cfg.Processor, cfg.Logger),
		logger:           cfg.Logger,
	}, nil
}

// Start receives messages until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	s.logger.Info().Str("subscription", s.subscriptionName).Msg("starting report subscriber")

	return s.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if s.handler.Handle(ctx, msg.ID, msg.Data) == Ack {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Close closes the Pub/Sub client.
func (s *Subscriber) Close() error {
	return s.client.Close()
}

// Publisher enqueues report jobs on a Pub/Sub topic.
type Publisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
}

// NewPublisher connects to Pub/Sub for publishing to topic.
func NewPublisher(ctx context.Context, projectID, topic string) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return &Publisher{client: client, publisher: client.Publisher(topic)}, nil
}

// Enqueue publishes job and returns the server message id.
func (p *Publisher) Enqueue(ctx context.Context, job ReportJob) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encoding report job: %w", err)
	}
	id, err := p.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"job_id": job.JobID, "analysis": job.Analysis},
	}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publishing report job: %w", err)
	}
	return id, nil
}

// Close flushes pending messages and closes the client.
func (p *Publisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
