package bootstrap

import (
	"fmt"

	"github.com/wolfman30/studio-concierge/internal/booking"
	appconfig "github.com/wolfman30/studio-concierge/internal/config"
	"github.com/wolfman30/studio-concierge/internal/notify"
	"github.com/wolfman30/studio-concierge/pkg/logging"
)

// BuildEmailSender picks the email provider named by cfg.EmailProvider.
// sesClient is only used for the "ses" provider.
func BuildEmailSender(cfg *appconfig.Config, sesClient notify.SESAPI, logger *logging.Logger) (notify.EmailSender, error) {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			return nil, fmt.Errorf("bootstrap: SENDGRID_API_KEY is required for the sendgrid provider")
		}
		return sender, nil
	case "ses":
		if sesClient == nil {
			return nil, fmt.Errorf("bootstrap: SES client is required for the ses provider")
		}
		return notify.NewSESSender(sesClient, notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger), nil
	case "", "stub":
		logger.Warn("email provider is stub; appointment requests will only be logged")
		return notify.NewStubEmailSender(logger), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
}

// BuildDispatcher wires the appointment notifier behind a dispatcher.
func BuildDispatcher(cfg *appconfig.Config, sender notify.EmailSender, logger *logging.Logger) *booking.Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.StudioOwnerEmail == "" {
		logger.Warn("STUDIO_OWNER_EMAIL is not set; appointment requests cannot be delivered")
	}
	notifier := notify.NewAppointmentNotifier(sender, notify.AppointmentConfig{
		Recipient:  cfg.StudioOwnerEmail,
		StudioName: cfg.StudioName,
		Location:   cfg.StudioLocation,
		Timezone:   cfg.Location(),
		Duration:   cfg.AppointmentDuration,
	}, logger.Component("notify"))
	return booking.NewDispatcher(notifier, booking.DefaultMessages(cfg.StudioPhone), logger.Component("booking"))
}
