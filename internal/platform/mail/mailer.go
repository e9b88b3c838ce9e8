// Copyright (c) 2026 Imma Platform. All rights reserved.

/*
Package mail implements the outbound notification gateway.

The core workflows only ever need "deliver this link to this address";
everything about transport (SMTP, TLS, authentication) stays behind the
[Sender] interface so services can be tested with a recording fake.

Delivery failures are returned to the caller, never swallowed here; the
workflow decides whether a failed delivery degrades the response or is
merely logged.
*/
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Sender is the delivery contract consumed by the auth workflows.
type Sender interface {
	// Deliver sends a templated message containing the given link.
	Deliver(ctx context.Context, toAddress, subject, link string) error
}

// Config holds the SMTP transport settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPSender delivers messages over SMTP with STARTTLS.
type SMTPSender struct {
	config Config
}

// NewSMTPSender validates the transport settings and returns a ready sender.
func NewSMTPSender(config Config) (*SMTPSender, error) {
	if strings.TrimSpace(config.Host) == "" {
		return nil, fmt.Errorf("mail: SMTP host is required")
	}
	if config.Port <= 0 {
		return nil, fmt.Errorf("mail: invalid SMTP port %d", config.Port)
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &SMTPSender{config: config}, nil
}

// Deliver sends a single plain-text message.
//
// The dial honors both the configured timeout and the caller's context
// deadline, whichever is shorter, so a stalled mail relay fails the request
// instead of hanging it.
func (sender *SMTPSender) Deliver(ctx context.Context, toAddress, subject, link string) error {
	address := net.JoinHostPort(sender.config.Host, fmt.Sprintf("%d", sender.config.Port))

	dialer := &net.Dialer{Timeout: sender.config.Timeout}
	connection, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("mail: dial failed: %w", err)
	}

	// A hard deadline on the socket bounds every subsequent SMTP exchange.
	deadline := time.Now().Add(sender.config.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = connection.SetDeadline(deadline)

	client, err := smtp.NewClient(connection, sender.config.Host)
	if err != nil {
		_ = connection.Close()
		return fmt.Errorf("mail: handshake failed: %w", err)
	}
	defer func() { _ = client.Close() }()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{ServerName: sender.config.Host}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("mail: starttls failed: %w", err)
		}
	}

	if sender.config.Username != "" {
		auth := smtp.PlainAuth("", sender.config.Username, sender.config.Password, sender.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("mail: auth failed: %w", err)
		}
	}

	if err := client.Mail(sender.config.From); err != nil {
		return fmt.Errorf("mail: MAIL FROM rejected: %w", err)
	}
	if err := client.Rcpt(toAddress); err != nil {
		return fmt.Errorf("mail: RCPT TO rejected: %w", err)
	}

	bodyWriter, err := client.Data()
	if err != nil {
		return fmt.Errorf("mail: DATA rejected: %w", err)
	}

	message := buildMessage(sender.config.From, toAddress, subject, link)
	if _, err := bodyWriter.Write([]byte(message)); err != nil {
		return fmt.Errorf("mail: body write failed: %w", err)
	}
	if err := bodyWriter.Close(); err != nil {
		return fmt.Errorf("mail: delivery not accepted: %w", err)
	}

	return client.Quit()
}

// buildMessage renders the minimal RFC 5322 payload for a link email.
func buildMessage(from, to, subject, link string) string {
	var builder strings.Builder
	builder.WriteString("From: " + from + "\r\n")
	builder.WriteString("To: " + to + "\r\n")
	builder.WriteString("Subject: " + subject + "\r\n")
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(link + "\r\n")
	return builder.String()
}

// # Development Sender

// LogSender writes deliveries to the structured log instead of sending them.
// Used when no SMTP host is configured (local development, CI).
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a Sender that only logs.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Deliver implements [Sender] by logging the would-be message.
func (sender *LogSender) Deliver(ctx context.Context, toAddress, subject, link string) error {
	sender.logger.InfoContext(ctx, "mail_delivery_skipped",
		slog.String("to", toAddress),
		slog.String("subject", subject),
		slog.String("link", link),
	)
	return nil
}
