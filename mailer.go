package accounts

import (
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const otpEmailTemplate = `<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; background-color: #f4f4f4; margin: 0; padding: 0; }
.container { max-width: 600px; margin: 20px auto; background: white; border-radius: 10px; overflow: hidden; }
.header { background: linear-gradient(135deg, #3b82f6 0%, #2563eb 100%); color: white; padding: 40px 30px; text-align: center; }
.content { padding: 40px 30px; }
.otp-box { background: #f0f9ff; border: 2px dashed #3b82f6; border-radius: 10px; padding: 30px; text-align: center; margin: 30px 0; }
.otp-code { font-size: 36px; font-weight: bold; color: #2563eb; letter-spacing: 8px; margin: 10px 0; }
.warning { background: #fef3c7; border-left: 4px solid #f59e0b; padding: 15px; margin: 20px 0; border-radius: 4px; }
.footer { background: #f9fafb; padding: 20px 30px; text-align: center; color: #6b7280; font-size: 14px; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>CounselGPT</h1>
    <p style="margin: 10px 0 0 0;">Email Verification</p>
  </div>
  <div class="content">
    <h2>Hi {{.FullName}}!</h2>
    <p>Thank you for signing up with <strong>CounselGPT</strong>.</p>
    <p>To complete your registration, please use the following one-time passcode:</p>
    <div class="otp-box">
      <p style="margin: 0; color: #6b7280; font-size: 14px;">Your verification code</p>
      <div class="otp-code">{{.Code}}</div>
      <p style="margin: 0; color: #6b7280; font-size: 14px;">Valid for {{.ExpiresInMinutes}} minutes</p>
    </div>
    <div class="warning">
      <strong>Security notice:</strong>
      <ul style="margin: 10px 0 0 0; padding-left: 20px;">
        <li>Never share this code with anyone</li>
        <li>CounselGPT will never ask for your code by phone or email</li>
        <li>This code expires in {{.ExpiresInMinutes}} minutes</li>
      </ul>
    </div>
    <p>If you didn't request this verification code, please ignore this email.</p>
  </div>
  <div class="footer">
    <p>This is an automated message, please do not reply.</p>
  </div>
</div>
</body>
</html>`

var otpTemplate = template.Must(template.New("otp_email").Parse(otpEmailTemplate))

type otpEmailData struct {
	FullName         string
	Code             string
	ExpiresInMinutes int
}

// RenderOTPEmail produces the HTML body for a verification email.
func RenderOTPEmail(fullName, code string) (string, error) {
	var b strings.Builder
	err := otpTemplate.Execute(&b, otpEmailData{
		FullName:         fullName,
		Code:             code,
		ExpiresInMinutes: int(OTPExpiry.Minutes()),
	})
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render verification email")
	}
	return b.String(), nil
}

// SMTPConfig holds outbound email provider settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPMailer delivers passcodes over SMTP, speaking STARTTLS on submission
// ports and implicit TLS on 465.
type SMTPMailer struct {
	config SMTPConfig
	logger Logger
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer creates a Mailer over the given provider settings.
func NewSMTPMailer(cfg SMTPConfig, logger Logger) *SMTPMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &SMTPMailer{config: cfg, logger: logger}
}

// SendOTP implements Mailer.
func (m *SMTPMailer) SendOTP(ctx context.Context, to, fullName, code string) error {
	if m.config.Host == "" || m.config.Username == "" || m.config.Password == "" {
		return goerrors.New("smtp not configured", goerrors.CategoryOperation)
	}

	body, err := RenderOTPEmail(fullName, code)
	if err != nil {
		return err
	}

	from := m.config.From
	if from == "" {
		from = m.config.Username
	}
	fromHeader := from
	if m.config.FromName != "" {
		fromHeader = fmt.Sprintf("%s <%s>", m.config.FromName, from)
	}

	subject := fmt.Sprintf("Your CounselGPT verification code: %s", code)
	msg := buildMessage(fromHeader, to, subject, body)
	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))
	auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)

	if m.config.Port == 465 {
		err = m.sendTLS(addr, auth, from, to, msg)
	} else {
		err = m.sendStartTLS(addr, auth, from, to, msg)
	}
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send verification email")
	}

	m.logger.Info("verification email sent to %s", to)
	return nil
}

func (m *SMTPMailer) sendStartTLS(addr string, auth smtp.Auth, from, to string, msg []byte) error {
	c, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.config.Host}); err != nil {
			return err
		}
	}
	if err := c.Auth(auth); err != nil {
		return err
	}
	return m.transmit(c, from, to, msg)
}

func (m *SMTPMailer) sendTLS(addr string, auth smtp.Auth, from, to string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.config.Host})
	if err != nil {
		return err
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Auth(auth); err != nil {
		return err
	}
	return m.transmit(c, from, to, msg)
}

func (m *SMTPMailer) transmit(c *smtp.Client, from, to string, msg []byte) error {
	if err := c.Mail(from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMessage(fromHeader, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + fromHeader + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// LogMailer logs codes instead of sending them. Useful in development where
// no SMTP provider is configured.
type LogMailer struct {
	logger Logger
}

var _ Mailer = (*LogMailer)(nil)

// NewLogMailer creates a Mailer that only logs.
func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

// SendOTP implements Mailer.
func (m *LogMailer) SendOTP(ctx context.Context, to, fullName, code string) error {
	m.logger.Info("smtp disabled, verification code for %s: %s", to, code)
	return nil
}
