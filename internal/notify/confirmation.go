// Package notify sends the applicant confirmation after an application is
// accepted.
package notify

import (
	"context"
	"strings"

	"admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"golang.org/x/sync/errgroup"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
	StatusDisabled = "disabled"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Recorder counts deliveries per channel. *observability.Observability
// satisfies it.
type Recorder interface {
	RecordNotification(ctx context.Context, channel, status string)
}

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	SenderID     string
}

// Message is what the applicant is told about.
type Message struct {
	ApplicationID  string `json:"applicationId"`
	ApplicationRef string `json:"applicationRef"`
	Institution    string `json:"institution"`
	FirstName      string `json:"firstName"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
}

// MessageFrom builds the confirmation for a submitted application.
func MessageFrom(s models.SubmittedApplication) Message {
	return Message{
		ApplicationID:  s.ApplicationID,
		ApplicationRef: s.Draft.ApplicationRef,
		Institution:    string(s.Draft.Institution),
		FirstName:      strings.TrimSpace(s.Draft.FirstName),
		Email:          strings.TrimSpace(s.Draft.Email),
		Phone:          s.Draft.FullPhone(),
	}
}

// Result reports the outcome per channel.
type Result struct {
	Email string `json:"emailStatus"`
	SMS   string `json:"smsStatus"`
}

// Delivered reports whether any channel got through.
func (r *Result) Delivered() bool {
	return r.Email == StatusSent || r.SMS == StatusSent
}

// Confirmation delivers email over SES and SMS over SNS, both at once.
type Confirmation struct {
	config   Config
	ses      SESService
	sns      SNSService
	recorder Recorder
	logger   logger.Logger
}

func NewConfirmation(cfg Config, sesClient SESService, snsClient SNSService, recorder Recorder, log logger.Logger) *Confirmation {
	return &Confirmation{
		config:   cfg,
		ses:      sesClient,
		sns:      snsClient,
		recorder: recorder,
		logger:   log.WithFields(map[string]interface{}{"component": "confirmation"}),
	}
}

// ApplicationSubmitted lets the session service notify without a workflow
// engine in between.
func (c *Confirmation) ApplicationSubmitted(ctx context.Context, submitted models.SubmittedApplication) error {
	_, err := c.Send(ctx, MessageFrom(submitted))
	return err
}

// Send delivers msg on every enabled channel. A failing channel does not
// stop the other one; the first failure is returned alongside the result.
func (c *Confirmation) Send(ctx context.Context, msg Message) (*Result, error) {
	result := &Result{Email: StatusDisabled, SMS: StatusDisabled}
	subject, body, sms := render(msg)

	var g errgroup.Group

	if c.config.EmailEnabled && c.ses != nil {
		if msg.Email == "" {
			result.Email = StatusSkipped
		} else {
			g.Go(func() error {
				err := c.sendEmail(ctx, msg.Email, subject, body)
				result.Email = c.outcome(ctx, ChannelEmail, msg, err)
				if err != nil {
					return errors.NewNotificationSendFailedError(ChannelEmail, err)
				}
				return nil
			})
		}
	}

	if c.config.SMSEnabled && c.sns != nil {
		if msg.Phone == "" {
			result.SMS = StatusSkipped
		} else {
			g.Go(func() error {
				err := c.sendSMS(ctx, msg.Phone, sms)
				result.SMS = c.outcome(ctx, ChannelSMS, msg, err)
				if err != nil {
					return errors.NewNotificationSendFailedError(ChannelSMS, err)
				}
				return nil
			})
		}
	}

	err := g.Wait()
	return result, err
}

func (c *Confirmation) outcome(ctx context.Context, channel string, msg Message, err error) string {
	status := StatusSent
	fields := map[string]interface{}{
		"channel":        channel,
		"applicationId":  msg.ApplicationID,
		"applicationRef": msg.ApplicationRef,
	}
	if err != nil {
		status = StatusFailed
		fields["error"] = err.Error()
		c.logger.Error("Confirmation delivery failed", fields)
	} else {
		c.logger.Info("Confirmation delivered", fields)
	}
	if c.recorder != nil {
		c.recorder.RecordNotification(ctx, channel, status)
	}
	return status
}

func (c *Confirmation) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := c.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(c.config.FromEmail),
	})
	return err
}

func (c *Confirmation) sendSMS(ctx context.Context, to, message string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	}
	if c.config.SenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(c.config.SenderID),
			},
		}
	}
	_, err := c.sns.Publish(ctx, input)
	return err
}
