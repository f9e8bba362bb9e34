package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
)

var ErrNoAddress = errors.New("no email address for player")

// AddressBook resolves a player id to an email address.
type AddressBook interface {
	Address(ctx context.Context, playerID string) (string, error)
}

// StaticAddressBook is an AddressBook backed by a fixed map.
type StaticAddressBook map[string]string

func (b StaticAddressBook) Address(_ context.Context, playerID string) (string, error) {
	addr, ok := b[playerID]
	if !ok || addr == "" {
		return "", ErrNoAddress
	}
	return addr, nil
}

// Sender is satisfied by *mail.Client.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// NewSMTPSender builds a go-mail client. Credentials are optional.
func NewSMTPSender(cfg SMTPConfig) (*mail.Client, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port), mail.WithTLSPolicy(mail.TLSOpportunistic)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return client, nil
}

// Mailer emails a "your turn" note. Players without an address are skipped.
type Mailer struct {
	sender    Sender
	addresses AddressBook
	from      string
	logger    *slog.Logger
}

func NewMailer(sender Sender, addresses AddressBook, from string, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{sender: sender, addresses: addresses, from: from, logger: logger}
}

func (m *Mailer) NotifyTurnChanged(ctx context.Context, matchID string, playerID string) error {
	to, err := m.addresses.Address(ctx, playerID)
	if errors.Is(err, ErrNoAddress) {
		m.logger.Debug("no address for turn email", "player_id", playerID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve address: %w", err)
	}

	msg, err := m.message(to, matchID)
	if err != nil {
		return err
	}
	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send turn email: %w", err)
	}
	return nil
}

func (m *Mailer) message(to, matchID string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("failed to set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("failed to set recipient: %w", err)
	}
	msg.Subject("It's your turn")
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Your partner has played their turn in match %s. Open the game to take yours.", matchID,
	))
	return msg, nil
}
