// Package bootstrap wires shared runtime dependencies (Redis, the
// notification queue, email delivery) so the api and worker binaries
// build them the same way.
package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"

	"github.com/ashdownmotors/garage-platform/cmd/mainconfig"
	appconfig "github.com/ashdownmotors/garage-platform/internal/config"
	"github.com/ashdownmotors/garage-platform/internal/notify"
	"github.com/ashdownmotors/garage-platform/internal/queue"
	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildQueue returns the notification queue. SQS when a queue URL is
// configured, an in-process buffered queue otherwise (local development
// runs the dispatcher in the api binary itself).
func BuildQueue(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (queue.Queue, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.UseMemoryQueue || strings.TrimSpace(cfg.NotifyQueueURL) == "" {
		logger.Info("using in-memory notification queue")
		return queue.NewMemoryQueue(100), nil
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("using SQS notification queue", "queue_url", cfg.NotifyQueueURL)
	return queue.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.NotifyQueueURL), nil
}

// BuildEmailSender selects the email provider from configuration.
// An unconfigured provider falls back to the logging stub so the rest
// of the pipeline keeps working.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.EmailProvider {
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Warn("ses unavailable, falling back to stub sender", "error", err)
			break
		}
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			return sender
		}
	case "stub":
	default:
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			return sender
		}
		logger.Warn("sendgrid not configured, falling back to stub sender")
	}
	return notify.NewStubEmailSender(logger)
}

// BuildNotifyService assembles the notification service with the
// configured recipients. The follow-up recipient is folded into the
// list when it is not already present.
func BuildNotifyService(sender notify.EmailSender, cfg *appconfig.Config, logger *logging.Logger) *notify.Service {
	recipients := cfg.NotifyRecipientList()
	if extra := strings.TrimSpace(cfg.FollowUpRecipient); extra != "" && !containsFold(recipients, extra) {
		recipients = append(recipients, extra)
	}
	return notify.NewService(sender, recipients, logger)
}

func containsFold(list []string, target string) bool {
	for _, v := range list {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
