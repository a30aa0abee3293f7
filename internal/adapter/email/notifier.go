package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/couchcryptid/storm-alert-delays/internal/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Config holds SMTP settings for the notifier.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	To          []string
	DialTimeout time.Duration
}

// sendFunc delivers a composed message. Replaced in tests.
type sendFunc func(ctx context.Context, from string, to []string, msg []byte) error

// Notifier e-mails the report workbook to a fixed recipient list.
type Notifier struct {
	cfg    Config
	send   sendFunc
	logger *slog.Logger
}

// NewNotifier creates an SMTP notifier. Mail is sent with STARTTLS and
// PLAIN authentication.
func NewNotifier(cfg Config, logger *slog.Logger) *Notifier {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 30 * time.Second
	}
	n := &Notifier{cfg: cfg, logger: logger}
	n.send = n.sendSMTP
	return n
}

// Name identifies the channel in logs and metrics.
func (n *Notifier) Name() string { return "email" }

// Notify composes and sends the report message.
func (n *Notifier) Notify(ctx context.Context, d domain.Delivery) error {
	if len(n.cfg.To) == 0 {
		return errors.New("no recipients configured")
	}

	msg, err := Compose(n.cfg.From, n.cfg.To, d)
	if err != nil {
		return err
	}

	if err := n.send(ctx, n.cfg.From, n.cfg.To, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	n.logger.Debug("report mailed", "recipients", len(n.cfg.To), "bytes", len(msg))
	return nil
}

// Subject returns the message subject for a delivery.
func Subject(d domain.Delivery) string {
	return fmt.Sprintf("Weather Delayed Orders - %s - %d Order(s) Found",
		d.Report.GeneratedAt.Format("01/02/2006"), d.MatchedCount)
}

// Compose builds the MIME message: a plain-text summary and the workbook
// as an attachment.
func Compose(from string, to []string, d domain.Delivery) ([]byte, error) {
	attachment, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	var h mail.Header
	h.SetDate(d.Report.GeneratedAt)
	h.SetSubject(Subject(d))
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	rcpt := make([]*mail.Address, 0, len(to))
	for _, addr := range to {
		rcpt = append(rcpt, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", rcpt)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("create body: %w", err)
	}
	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	bw, err := tw.CreatePart(th)
	if err != nil {
		return nil, fmt.Errorf("create body part: %w", err)
	}
	if _, err := io.WriteString(bw, Body(d)); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	if err := bw.Close(); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}

	var ah mail.AttachmentHeader
	ah.SetContentType(xlsxContentType, nil)
	ah.SetFilename(filepath.Base(d.Path))
	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return nil, fmt.Errorf("create attachment: %w", err)
	}
	if _, err := aw.Write(attachment); err != nil {
		return nil, fmt.Errorf("write attachment: %w", err)
	}
	if err := aw.Close(); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}

// Body renders the plain-text part.
func Body(d domain.Delivery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weather delayed orders report for %s.\n\n", d.Report.GeneratedAt.Format("01/02/2006"))
	fmt.Fprintf(&b, "Active alerts: %d\n", d.AlertCount)
	fmt.Fprintf(&b, "Matched orders: %d\n", d.MatchedCount)

	clients := d.Report.ClientSheets()
	if len(clients) == 0 {
		b.WriteString("\nNo orders are in a county under an active alert.\n")
	} else {
		b.WriteString("\nOrders by client:\n")
		for _, s := range clients {
			fmt.Fprintf(&b, "  %s: %d\n", s.Client, len(s.Rows))
		}
	}

	fmt.Fprintf(&b, "\nThe full report is attached (%s).\n", filepath.Base(d.Path))
	return b.String()
}

func (n *Notifier) sendSMTP(ctx context.Context, from string, to []string, msg []byte) error {
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))

	dialer := &net.Dialer{Timeout: n.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if n.cfg.Password != "" {
		if err := c.Auth(smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(from); err != nil {
		return err
	}
	for _, r := range to {
		if err := c.Rcpt(r); err != nil {
			return fmt.Errorf("rcpt %s: %w", r, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
