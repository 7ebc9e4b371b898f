// Package jobqueue receives conversion job requests from an SQS queue
// using long polling. Messages stay in flight until the worker
// acknowledges them, so a crashed worker's jobs are redelivered.
package jobqueue

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/parquetry/parquetry/pkg/errors"
)

const (
	defaultWaitTimeSeconds   = 20
	defaultVisibilityTimeout = 900 // long enough to convert a large object
)

// Message is one received queue entry. Body is the raw job JSON; the
// receipt handle acknowledges it.
type Message struct {
	Body          string
	ReceiptHandle string
}

// sqsAPI is the slice of the SQS client the poller needs.
type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Poller long-polls one SQS queue for job messages.
type Poller struct {
	client   sqsAPI
	queueURL string
	logger   *zap.Logger
}

// NewPoller builds a poller from the default AWS credential chain.
func NewPoller(ctx context.Context, queueURL, region string, logger *zap.Logger) (*Poller, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	return &Poller{
		client:   sqs.NewFromConfig(awsCfg),
		queueURL: queueURL,
		logger:   logger,
	}, nil
}

// newPollerWithAPI wires a caller-supplied client, for tests.
func newPollerWithAPI(client sqsAPI, queueURL string, logger *zap.Logger) *Poller {
	return &Poller{client: client, queueURL: queueURL, logger: logger}
}

// Receive long-polls for the next message. It returns nil when the
// poll window elapses with no message.
func (p *Poller) Receive(ctx context.Context) (*Message, error) {
	out, err := p.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(p.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     defaultWaitTimeSeconds,
		VisibilityTimeout:   defaultVisibilityTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to receive from job queue").
			WithDetail("queue_url", p.queueURL)
	}
	if len(out.Messages) == 0 {
		return nil, nil
	}

	msg := out.Messages[0]
	return &Message{
		Body:          aws.ToString(msg.Body),
		ReceiptHandle: aws.ToString(msg.ReceiptHandle),
	}, nil
}

// Ack deletes a processed message so it is not redelivered.
func (p *Poller) Ack(ctx context.Context, msg *Message) error {
	_, err := p.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(p.queueURL),
		ReceiptHandle: aws.String(msg.ReceiptHandle),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to delete job message").
			WithDetail("queue_url", p.queueURL)
	}

	p.logger.Debug("job message acknowledged", zap.String("queue_url", p.queueURL))
	return nil
}
