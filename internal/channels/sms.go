package channels

import (
	"context"
	"fmt"

	"weather-notifier/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

const senderIDAttribute = "AWS.SNS.SMS.SenderID"

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SMSConfig struct {
	Enabled  bool
	SenderID string
}

type SMS struct {
	config SMSConfig
	client SNSService
}

func NewSMS(config SMSConfig, client SNSService) *SMS {
	return &SMS{config: config, client: client}
}

func (s *SMS) Method() models.Method { return models.MethodSMS }

func (s *SMS) Contact(sub models.Subscriber) string { return sub.ContactFor(s.Method()) }

func (s *SMS) Send(ctx context.Context, to, message string) error {
	if !s.config.Enabled || s.client == nil {
		return ErrChannelDisabled
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	}
	if s.config.SenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			senderIDAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.config.SenderID),
			},
		}
	}

	if _, err := s.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("%w: sns: %v", ErrSendFailed, err)
	}
	return nil
}
