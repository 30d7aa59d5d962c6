package email

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/artpar/devportal/internal/core/domain"
)

// sesAPI is the subset of the SES client the mailer uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer implements Mailer on AWS SES.
type SESMailer struct {
	api    sesAPI
	sender string
}

// NewSESMailer creates a mailer sending from the given verified address.
func NewSESMailer(cfg aws.Config, sender string) *SESMailer {
	return &SESMailer{
		api:    sesv2.NewFromConfig(cfg),
		sender: sender,
	}
}

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	_, err := m.api.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.sender),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body)},
				},
			},
		},
	})
	if err != nil {
		return domain.NewUpstreamError("failed to send email", err)
	}
	return nil
}
