package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	envConfig "github.com/BarkinBalci/synthesis-engine/internal/config"
	"github.com/BarkinBalci/synthesis-engine/internal/notify"
)

// MessageSender is the part of the SQS API the mail publisher needs
type MessageSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// mailMessage is the contract with the mailer consuming the queue
type mailMessage struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	HTMLBody   string   `json:"html_body"`
}

// Client publishes mail requests to an SQS queue
type Client struct {
	api      MessageSender
	queueURL string
	log      *zap.Logger
}

// NewClient creates an SQS-backed notification sender
func NewClient(ctx context.Context, SQSConfig envConfig.SQS, log *zap.Logger) (*Client, error) {
	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(SQSConfig.Region),
	}

	var clientOpts []func(*sqs.Options)

	// Configure for local development with ElasticMQ
	if SQSConfig.Endpoint != "" {
		log.Info("Configuring SQS for local development",
			zap.String("endpoint", SQSConfig.Endpoint))
		configOpts = append(configOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")))

		clientOpts = append(clientOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(SQSConfig.Endpoint)
		})
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("SQS mail publisher created",
		zap.String("region", SQSConfig.Region),
		zap.String("queue_url", SQSConfig.QueueURL))

	return NewClientWithAPI(sqs.NewFromConfig(cfg, clientOpts...), SQSConfig.QueueURL, log), nil
}

// NewClientWithAPI creates a sender over an existing SQS API
func NewClientWithAPI(api MessageSender, queueURL string, log *zap.Logger) *Client {
	return &Client{api: api, queueURL: queueURL, log: log}
}

// Send enqueues one mail request for the mailer
func (c *Client) Send(ctx context.Context, recipients []string, subject, htmlBody string) error {
	if len(recipients) == 0 {
		return errors.New("no recipients")
	}

	body, err := json.Marshal(mailMessage{
		Recipients: recipients,
		Subject:    subject,
		HTMLBody:   htmlBody,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal mail message: %w", err)
	}

	_, err = c.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(c.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"Kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String("report_mail"),
			},
		},
	})
	if err != nil {
		c.log.Error("Failed to send mail message to SQS",
			zap.String("subject", subject),
			zap.Int("recipients", len(recipients)),
			zap.Error(err))
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	c.log.Info("Mail message published to SQS",
		zap.String("subject", subject),
		zap.Int("recipients", len(recipients)))

	return nil
}

var _ notify.Sender = (*Client)(nil)
