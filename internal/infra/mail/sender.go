package mail

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rawatapurva/HD-Notes-App/internal/core/port"
	"github.com/rawatapurva/HD-Notes-App/internal/infra/config"
	"github.com/rawatapurva/HD-Notes-App/internal/infra/logger"
)

// ErrTransportUnavailable is returned by senders that cannot deliver mail.
var ErrTransportUnavailable = errors.New("mail: transport not configured")

const otpSubject = "Your HD Notes OTP Code"

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers OTP codes over authenticated SMTP.
type SMTPSender struct {
	cfg      config.MailSettings
	from     string
	sendMail sendMailFunc
}

func NewSMTPSender(cfg config.MailSettings) *SMTPSender {
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = fmt.Sprintf("\"HD Notes\" <%s>", cfg.Username)
	}
	return &SMTPSender{cfg: cfg, from: from, sendMail: smtp.SendMail}
}

func (s *SMTPSender) SendOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	if err := s.sendMail(addr, auth, s.cfg.Username, []string{email}, buildMessage(s.from, email, code, ttl)); err != nil {
		return fmt.Errorf("mail: smtp send: %w", err)
	}
	return nil
}

func buildMessage(from, to, code string, ttl time.Duration) []byte {
	body := fmt.Sprintf("<p>Your OTP is <b>%s</b>. It will expire in %d minutes.</p>", code, ttlMinutes(ttl))

	headers := []string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", otpSubject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		body,
	}
	return []byte(strings.Join(headers, "\r\n"))
}

func ttlMinutes(ttl time.Duration) int {
	if ttl <= 0 {
		return 5
	}
	return int(math.Ceil(ttl.Minutes()))
}

// LogSender writes codes to the log. Only for local development.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{logger: log}
}

func (s *LogSender) SendOTP(_ context.Context, email, code string, ttl time.Duration) error {
	s.logger.Warn("debug mail sink: otp code not delivered",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("code", code),
		zap.Duration("ttl", ttl),
	)
	return nil
}

// UnavailableSender rejects every delivery.
type UnavailableSender struct{}

func (UnavailableSender) SendOTP(context.Context, string, string, time.Duration) error {
	return ErrTransportUnavailable
}

// NewSender picks the transport for the environment. Code logging requires
// both the debug flag and a non-production environment.
func NewSender(app config.AppSettings, cfg config.MailSettings, log *zap.Logger) port.OTPNotifier {
	if log == nil {
		log = zap.NewNop()
	}

	switch {
	case cfg.Configured():
		log.Info("smtp mail transport configured", zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
		return NewSMTPSender(cfg)
	case cfg.DebugLogCodes && !app.IsProduction():
		log.Warn("mail transport not configured, otp codes will be logged")
		return NewLogSender(log)
	default:
		log.Warn("mail transport not configured, otp delivery disabled")
		return UnavailableSender{}
	}
}

var (
	_ port.OTPNotifier = (*SMTPSender)(nil)
	_ port.OTPNotifier = (*LogSender)(nil)
	_ port.OTPNotifier = UnavailableSender{}
)
