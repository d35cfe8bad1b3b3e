package email

import (
	"context"
	"fmt"
	"html"
	"log"
)

// VerificationMailer builds and sends the email-verification message. It
// reports a boolean outcome so the registration flow can react without the
// SMTP error crossing the service boundary.
type VerificationMailer struct {
	Sender *Sender
}

// SendVerificationCode mails the verification link. Returns false when the
// message could not be delivered; the error itself is only logged.
func (m *VerificationMailer) SendVerificationCode(ctx context.Context, name, to, verifyURL string) bool {
	subject := "Your account verification code"
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Welcome to KeenOn Card Generate! Please confirm your email address by
		following the link below. The link is valid until used once.</p>
		<p><a href="%s">Verify your email</a></p>
		<p>If you did not create an account, you can ignore this message.</p>
	`, html.EscapeString(name), verifyURL)

	if err := m.Sender.Send(ctx, to, subject, body); err != nil {
		log.Printf("email: verification send to %s failed: %v", to, err)
		return false
	}
	return true
}
