package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	"review-responder/internal/common/config"
	"review-responder/internal/common/errors"
	"review-responder/internal/common/logger"
	"review-responder/internal/models"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

// Notification is the record of one delivery attempt.
type Notification struct {
	ID     string `json:"notificationId"`
	Type   string `json:"type"`
	Status string `json:"status"`
	SentAt string `json:"sentAt"` // ISO 8601
}

// Notifier emails business owners about urgent reviews and raises operator
// alerts when the completion provider keeps failing.
type Notifier struct {
	config    config.NotificationConfig
	sesClient SESService
	snsClient SNSService
	templates *TemplateRegistry
	logger    logger.Logger

	mu            sync.Mutex
	failureStreak int
	lastError     string
	limitNotified map[string]struct{}
}

func NewNotifier(cfg config.NotificationConfig, sesClient SESService, snsClient SNSService, templates *TemplateRegistry, log logger.Logger) *Notifier {
	return &Notifier{
		config:    cfg,
		sesClient: sesClient,
		snsClient: snsClient,
		templates: templates,
		logger:    log,

		limitNotified: make(map[string]struct{}),
	}
}

// NotifyNegativeReview emails the profile owner when an urgent negative
// review came in. Returns a disabled notification when email is off for the
// service or the profile.
func (n *Notifier) NotifyNegativeReview(ctx context.Context, profile *models.BusinessProfile, rating int, analysis models.ReviewAnalysis) (*Notification, error) {
	notification := &Notification{
		ID:     uuid.NewString(),
		Type:   TypeNegativeReview,
		SentAt: time.Now().UTC().Format(time.RFC3339),
	}

	if !n.config.Email.Enabled || !profile.NotifyByEmail || profile.OwnerEmail == "" {
		notification.Status = StatusDisabled
		return notification, nil
	}

	template, ok := n.templates.Get(TypeNegativeReview)
	if !ok {
		return nil, errors.NewNotificationSendFailedError("email",
			fmt.Errorf("template not found for type: %s", TypeNegativeReview))
	}

	data := map[string]interface{}{
		"businessName": profile.Name,
		"rating":       rating,
		"urgency":      analysis.Urgency,
	}
	if analysis.MainIssue != nil {
		data["mainIssue"] = *analysis.MainIssue
	}

	subject := renderTemplate(template.Subject, data)
	body := renderTemplate(template.Body, data)

	if err := n.sendEmail(ctx, profile.OwnerEmail, subject, body); err != nil {
		n.logger.Error("email send failed", map[string]interface{}{
			"error":     err,
			"profileId": profile.ID,
		})
		notification.Status = StatusFailed
		return notification, errors.NewNotificationSendFailedError("email", err)
	}

	notification.Status = StatusSent
	n.logger.Info("owner notified", map[string]interface{}{
		"profileId": profile.ID,
		"type":      TypeNegativeReview,
	})
	return notification, nil
}

// NotifyUsageLimitReached emails the profile owner the first time a quota
// window fills up. Repeated rejections within the same window stay silent.
func (n *Notifier) NotifyUsageLimitReached(ctx context.Context, profile *models.BusinessProfile, window string, limit int64) (*Notification, error) {
	notification := &Notification{
		ID:     uuid.NewString(),
		Type:   TypeUsageLimit,
		SentAt: time.Now().UTC().Format(time.RFC3339),
	}

	if !n.config.Email.Enabled || !profile.NotifyByEmail || profile.OwnerEmail == "" {
		notification.Status = StatusDisabled
		return notification, nil
	}

	key := limitWindowKey(profile.ID, window, time.Now().UTC())
	n.mu.Lock()
	if _, seen := n.limitNotified[key]; seen {
		n.mu.Unlock()
		notification.Status = StatusDisabled
		return notification, nil
	}
	n.limitNotified[key] = struct{}{}
	n.mu.Unlock()

	template, ok := n.templates.Get(TypeUsageLimit)
	if !ok {
		return nil, errors.NewNotificationSendFailedError("email",
			fmt.Errorf("template not found for type: %s", TypeUsageLimit))
	}

	subject := renderTemplate(template.Subject, map[string]interface{}{
		"businessName": profile.Name,
		"window":       window,
	})
	body := renderTemplate(template.Body, map[string]interface{}{
		"window": window,
		"limit":  limit,
	})

	if err := n.sendEmail(ctx, profile.OwnerEmail, subject, body); err != nil {
		n.logger.Error("email send failed", map[string]interface{}{
			"error":     err,
			"profileId": profile.ID,
			"type":      TypeUsageLimit,
		})
		notification.Status = StatusFailed
		return notification, errors.NewNotificationSendFailedError("email", err)
	}

	notification.Status = StatusSent
	n.logger.Info("owner notified", map[string]interface{}{
		"profileId": profile.ID,
		"type":      TypeUsageLimit,
		"window":    window,
	})
	return notification, nil
}

// limitWindowKey dedupes limit notifications per profile and quota window.
func limitWindowKey(profileID, window string, now time.Time) string {
	switch window {
	case "monthly":
		return profileID + ":monthly:" + now.Format("2006-01")
	default:
		return profileID + ":daily:" + now.Format("2006-01-02")
	}
}

// RecordProviderFailure bumps the consecutive-failure streak and publishes
// an SNS alert when it reaches the configured threshold. The streak resets
// after alerting so a sustained outage alerts once per threshold run.
func (n *Notifier) RecordProviderFailure(ctx context.Context, cause error) {
	n.mu.Lock()
	n.failureStreak++
	if cause != nil {
		n.lastError = cause.Error()
	}
	streak := n.failureStreak
	lastError := n.lastError
	threshold := n.config.FailureStreakThreshold
	shouldAlert := threshold > 0 && streak >= threshold
	if shouldAlert {
		n.failureStreak = 0
	}
	n.mu.Unlock()

	if !shouldAlert {
		return
	}
	n.alertOperators(ctx, streak, lastError)
}

// RecordProviderSuccess resets the failure streak.
func (n *Notifier) RecordProviderSuccess() {
	n.mu.Lock()
	n.failureStreak = 0
	n.mu.Unlock()
}

func (n *Notifier) alertOperators(ctx context.Context, streak int, lastError string) {
	if !n.config.SMS.Enabled || n.config.SMS.TopicArn == "" {
		n.logger.Warn("provider failure streak hit threshold, SMS alerting disabled", map[string]interface{}{
			"failureCount": streak,
		})
		return
	}

	template, ok := n.templates.Get(TypeProviderFailure)
	if !ok {
		return
	}

	message := renderTemplate(template.Body, map[string]interface{}{
		"failureCount": streak,
		"lastError":    lastError,
	})

	_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.config.SMS.TopicArn),
		Subject:  aws.String(renderTemplate(template.Subject, nil)),
		Message:  aws.String(message),
	})
	if err != nil {
		n.logger.Error("operator alert failed", map[string]interface{}{
			"error":        err,
			"failureCount": streak,
		})
		return
	}

	n.logger.Warn("operator alert published", map[string]interface{}{
		"failureCount": streak,
	})
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.Email.FromEmail),
	})
	return err
}
