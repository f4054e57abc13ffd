package delivery

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/deskops/itsm-service/internal/domain"
)

// PasswordOpener recovers the plaintext SMTP password of an account.
type PasswordOpener interface {
	Open(sealed string) (string, error)
}

// SMTPMailer delivers mail with net/smtp. Secure accounts on port 465 use implicit
// TLS; other secure accounts upgrade with STARTTLS.
type SMTPMailer struct {
	passwords PasswordOpener
	timeout   time.Duration
	now       func() time.Time
}

// NewSMTPMailer constructs the mailer.
func NewSMTPMailer(passwords PasswordOpener, timeout time.Duration) *SMTPMailer {
	return &SMTPMailer{passwords: passwords, timeout: timeout, now: time.Now}
}

// Send delivers msg through account.
func (m *SMTPMailer) Send(ctx context.Context, account domain.EmailAccount, msg EmailMessage) error {
	if len(msg.To) == 0 {
		return errors.New("no recipients specified")
	}
	if account.SMTPHost == "" || account.SMTPPort <= 0 {
		return fmt.Errorf("email account %s has no smtp endpoint", account.ID)
	}

	client, err := m.dial(ctx, account)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := m.authenticate(client, account); err != nil {
		return err
	}

	if err := client.Mail(account.FromAddress); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, to := range msg.To {
		if err := client.Rcpt(to); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", to, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to initiate data transfer: %w", err)
	}
	if _, err := w.Write(buildMessage(account.FromAddress, msg, m.now())); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data transfer: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("failed to quit SMTP session: %w", err)
	}
	return nil
}

func (m *SMTPMailer) dial(ctx context.Context, account domain.EmailAccount) (*smtp.Client, error) {
	addr := net.JoinHostPort(account.SMTPHost, strconv.Itoa(account.SMTPPort))
	tlsConfig := &tls.Config{ServerName: account.SMTPHost, MinVersion: tls.VersionTLS12}

	dialer := &net.Dialer{Timeout: m.timeout}
	var (
		conn net.Conn
		err  error
	)
	if account.Secure && account.SMTPPort == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if m.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(m.timeout))
	}

	client, err := smtp.NewClient(conn, account.SMTPHost)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	if account.Secure && account.SMTPPort != 465 {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	return client, nil
}

func (m *SMTPMailer) authenticate(client *smtp.Client, account domain.EmailAccount) error {
	if account.Username == "" {
		return nil
	}
	password, err := m.passwords.Open(account.SealedPassword)
	if err != nil {
		return fmt.Errorf("open smtp password: %w", err)
	}
	if ok, _ := client.Extension("AUTH"); !ok {
		return nil
	}
	auth := smtp.PlainAuth("", account.Username, password, account.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	return nil
}
