package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/akulinin/mediascore/pkg/logger"
	"gopkg.in/gomail.v2"
)

// EmailConfig holds SMTP and app settings—passed in from app config
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	AppURL       string
	FromEmail    string
}

// SendConfirmationEmail delivers the signup confirmation code. Callers treat a
// failure as non-fatal: the code stays on the user record and signup can be
// repeated to resend it.
func SendConfirmationEmail(ctx context.Context, config EmailConfig, email, username, code string, log *logger.Logger) error {
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html lang="en">
<body style="font-family: Arial, sans-serif; color: #333;">
    <div style="max-width: 600px; margin: 40px auto;">
        <h2>Hello %s,</h2>
        <p>Use the confirmation code below to obtain your MediaScore access token:</p>
        <p style="font-size: 20px; font-weight: bold; letter-spacing: 1px;">%s</p>
        <p>Send it together with your username to <code>%s/v1/auth/token</code>.</p>
        <p>If you didn&#39;t sign up, please ignore this email.</p>
        <p>The MediaScore Team</p>
        <p style="font-size: 12px; color: #777;">&copy; %d MediaScore</p>
    </div>
</body>
</html>
`, username, code, config.AppURL, time.Now().Year())

	textBody := fmt.Sprintf(`
Hello %s,

Your MediaScore confirmation code is: %s

Send it together with your username to %s/v1/auth/token to obtain an access token.

If you didn't sign up, ignore this email.

The MediaScore Team
`, username, code, config.AppURL)

	msg := gomail.NewMessage()
	msg.SetHeader("From", config.FromEmail)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "Confirmation code.")
	msg.SetBody("text/plain", textBody)
	msg.AddAlternative("text/html", htmlBody)

	dialer := gomail.NewDialer(config.SMTPHost, config.SMTPPort, config.SMTPUsername, config.SMTPPassword)
	if err := dialer.DialAndSend(msg); err != nil {
		log.Warn(ctx).WithFields(email).Logs("Failed to send confirmation email to %s")
		return WrapError(err, ErrInternalServerError.Code, "Failed to send confirmation email")
	}
	log.Info(ctx).WithFields(email).Logs("Confirmation email sent to %s")
	return nil
}
