package channels

import (
	"context"
	"fmt"

	"weather-notifier/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const DefaultSubject = "Weather Update"

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type EmailConfig struct {
	Enabled   bool
	FromEmail string
	Subject   string
}

type Email struct {
	config EmailConfig
	client SESService
}

func NewEmail(config EmailConfig, client SESService) *Email {
	if config.Subject == "" {
		config.Subject = DefaultSubject
	}
	return &Email{config: config, client: client}
}

func (e *Email) Method() models.Method { return models.MethodEmail }

func (e *Email) Contact(sub models.Subscriber) string { return sub.ContactFor(e.Method()) }

func (e *Email) Send(ctx context.Context, to, message string) error {
	if !e.config.Enabled || e.client == nil {
		return ErrChannelDisabled
	}

	_, err := e.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(e.config.Subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(message)},
			},
		},
		Source: aws.String(e.config.FromEmail),
	})
	if err != nil {
		return fmt.Errorf("%w: ses: %v", ErrSendFailed, err)
	}
	return nil
}
