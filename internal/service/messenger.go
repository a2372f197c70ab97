package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/flavor-entertainers/booking-platform/internal/config"
	"github.com/flavor-entertainers/booking-platform/internal/model"
)

// Messenger delivers a text message to a phone number and returns the
// provider's message id.
type Messenger interface {
	Send(ctx context.Context, to, body string) (string, error)
	Channel() string
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioMessenger sends SMS or WhatsApp messages through the Twilio REST
// API.
type TwilioMessenger struct {
	api      messageCreator
	from     string
	whatsapp bool
}

func NewTwilioMessenger(cfg config.NotifyConfig) *TwilioMessenger {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	return &TwilioMessenger{
		api:      client.Api,
		from:     cfg.TwilioFrom,
		whatsapp: strings.EqualFold(cfg.Channel, "whatsapp"),
	}
}

func (m *TwilioMessenger) Channel() string {
	if m.whatsapp {
		return model.ChannelWhatsApp
	}
	return model.ChannelSMS
}

// Send posts one message.  The Twilio client does not take a context, so
// cancellation is only checked before the call.
func (m *TwilioMessenger) Send(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(m.address(to))
	params.SetFrom(m.address(m.from))
	params.SetBody(body)

	resp, err := m.api.CreateMessage(params)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Sid == nil {
		return "", errors.New("twilio: response without message sid")
	}
	return *resp.Sid, nil
}

func (m *TwilioMessenger) address(phone string) string {
	if m.whatsapp && !strings.HasPrefix(phone, "whatsapp:") {
		return "whatsapp:" + phone
	}
	return phone
}

// LogMessenger writes messages to the log instead of sending them.  It is
// used when Twilio is not configured.
type LogMessenger struct {
	log *slog.Logger
}

func NewLogMessenger(log *slog.Logger) *LogMessenger { return &LogMessenger{log: log} }

func (m *LogMessenger) Channel() string { return model.ChannelLog }

func (m *LogMessenger) Send(_ context.Context, to, body string) (string, error) {
	m.log.Info("outbound message", slog.String("to", to), slog.String("body", body))
	return "", nil
}

// NewMessenger picks Twilio when credentials are configured.
func NewMessenger(cfg config.NotifyConfig, log *slog.Logger) Messenger {
	if cfg.TwilioEnabled() {
		return NewTwilioMessenger(cfg)
	}
	log.Warn("twilio not configured, messages will only be logged")
	return NewLogMessenger(log)
}
