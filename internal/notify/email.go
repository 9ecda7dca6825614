package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/kevinliu948/storeit-backend/internal/conf"
)

const defaultSendTimeout = 30 * time.Second

// EmailNotifier sends share notifications over SMTP. Failures are the
// caller's to log; sharing itself must not depend on delivery.
type EmailNotifier struct {
	cfg conf.SMTPConfig
}

func NewEmailNotifier(cfg conf.SMTPConfig) *EmailNotifier {
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	return &EmailNotifier{cfg: cfg}
}

// NotifyShared emails each recipient that ownerName shared fileName with them.
func (n *EmailNotifier) NotifyShared(ctx context.Context, fileName, ownerName string, emails []string) error {
	if len(emails) == 0 {
		return nil
	}

	client, err := n.createClient()
	if err != nil {
		return fmt.Errorf("create mail client: %w", err)
	}
	defer client.Close()

	msgs := make([]*mail.Msg, 0, len(emails))
	for _, to := range emails {
		msg, err := n.buildMessage(to, fileName, ownerName)
		if err != nil {
			return fmt.Errorf("build message for %s: %w", to, err)
		}
		msgs = append(msgs, msg)
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.cfg.SendTimeout)
	defer cancel()

	if err := client.DialAndSendWithContext(sendCtx, msgs...); err != nil {
		return fmt.Errorf("send share notification: %w", err)
	}
	return nil
}

func (n *EmailNotifier) createClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithTimeout(n.cfg.SendTimeout),
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}
	return mail.NewClient(n.cfg.Host, opts...)
}

func (n *EmailNotifier) buildMessage(to, fileName, ownerName string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return nil, err
	}
	if err := msg.To(to); err != nil {
		return nil, err
	}
	msg.Subject(fmt.Sprintf("%s shared a file with you", ownerName))
	msg.SetBodyString(mail.TypeTextPlain,
		fmt.Sprintf("%s shared %q with you. Sign in to view it under Shared files.", ownerName, fileName))
	return msg, nil
}

// NoopNotifier is used when SMTP is disabled.
type NoopNotifier struct{}

func (NoopNotifier) NotifyShared(context.Context, string, string, []string) error {
	return nil
}
