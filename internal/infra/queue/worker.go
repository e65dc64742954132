package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ContactRecorder applies a sent follow-up to its lead.
type ContactRecorder interface {
	RecordContact(ctx context.Context, payload FollowupSentPayload) error
}

// Consumer is the subset of *amqp.Channel used for consuming.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel  Consumer
	Recorder ContactRecorder
	Logger   *slog.Logger
}

func NewWorker(ch Consumer, recorder ContactRecorder, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		Channel:  ch,
		Recorder: recorder,
		Logger:   logger,
	}
}

// Start consumes queueName until ctx is done or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	w.Logger.Info("worker consuming", "queue", queueName)
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("worker stopped", "queue", queueName)
			return nil
		case d, ok := <-msgs:
			if !ok {
				w.Logger.Warn("delivery channel closed", "queue", queueName)
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var payload FollowupSentPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		w.Logger.Error("malformed message; dead-lettering", "error", err)
		d.Nack(false, false)
		return
	}

	if err := w.Recorder.RecordContact(ctx, payload); err != nil {
		w.Logger.Error("recording contact failed; dead-lettering",
			"lead_id", payload.LeadID, "sent_email_id", payload.SentEmailID, "error", err)
		d.Nack(false, false)
		return
	}

	w.Logger.Info("lead contact recorded", "lead_id", payload.LeadID, "sent_email_id", payload.SentEmailID)
	d.Ack(false)
}
