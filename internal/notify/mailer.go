// Package notify sends transactional email. Callers dispatch sends from
// detached goroutines; a failed send is logged and never propagated to
// the operation that triggered it.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"tuckshop/internal/domain"
)

// Mailer delivers the three transactional mails of the shop.
type Mailer interface {
	SendWelcome(ctx context.Context, user domain.User) error
	SendOrderConfirmation(ctx context.Context, user domain.User, order domain.Order) error
	SendPasswordReset(ctx context.Context, email, rawToken string) error
}

// SMTPMailer delivers mail over SMTP.
type SMTPMailer struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
}

func NewSMTPMailer(host string, port int, username, password, from, baseURL string) *SMTPMailer {
	return &SMTPMailer{
		dialer:  gomail.NewDialer(host, port, username, password),
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

var _ Mailer = (*SMTPMailer)(nil)

func (m *SMTPMailer) send(to, toName, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.from, "Campus Tuckshop"))
	if toName != "" {
		msg.SetHeader("To", msg.FormatAddress(to, toName))
	} else {
		msg.SetHeader("To", to)
	}
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, user domain.User) error {
	body := fmt.Sprintf(`<h2>Hi %s,</h2>
<p>Welcome to Campus Tuckshop! Your account is ready.</p>
<p>Happy shopping!</p>`, user.Name)
	return m.send(user.Email, user.Name, "Welcome to Campus Tuckshop", body)
}

func (m *SMTPMailer) SendOrderConfirmation(ctx context.Context, user domain.User, order domain.Order) error {
	var items strings.Builder
	for _, it := range order.Items {
		fmt.Fprintf(&items, "<li>%s (x%d) - $%.2f</li>", it.Name, it.Quantity, it.Price*float64(it.Quantity))
	}
	body := fmt.Sprintf(`<h2>Hi %s,</h2>
<p>Thank you for your order! We've received it successfully.</p>
<h3>Order Summary:</h3>
<ul>%s</ul>
<p><strong>Total: $%.2f</strong></p>
<p>Thanks for shopping with us!</p>`, user.Name, items.String(), order.Total)
	return m.send(user.Email, user.Name, "Your Campus Tuckshop Order #"+order.ID, body)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, email, rawToken string) error {
	resetURL := ResetLink(m.baseURL, rawToken)
	body := fmt.Sprintf(`<p>Hi there,</p>
<p>You requested a password reset. Click the link below to set a new password:</p>
<p><a href="%s">Reset Password</a></p>
<p>This link will expire in 1 hour.</p>`, resetURL)
	return m.send(email, "", "Reset Your Password - Campus Tuckshop", body)
}

// ResetLink builds the reset URL emailed to the user.
func ResetLink(baseURL, rawToken string) string {
	return strings.TrimRight(baseURL, "/") + "/reset-password?token=" + rawToken
}

// LogMailer writes mail to the log instead of delivering it. Used when
// no SMTP host is configured.
type LogMailer struct {
	log     zerolog.Logger
	baseURL string
}

func NewLogMailer(log zerolog.Logger, baseURL string) *LogMailer {
	return &LogMailer{log: log, baseURL: baseURL}
}

var _ Mailer = (*LogMailer)(nil)

func (m *LogMailer) SendWelcome(ctx context.Context, user domain.User) error {
	m.log.Info().Str("to", user.Email).Msg("welcome email")
	return nil
}

func (m *LogMailer) SendOrderConfirmation(ctx context.Context, user domain.User, order domain.Order) error {
	m.log.Info().Str("to", user.Email).Str("order_id", order.ID).Msg("order confirmation email")
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, rawToken string) error {
	m.log.Info().Str("to", email).Str("link", ResetLink(m.baseURL, rawToken)).Msg("password reset email")
	return nil
}
