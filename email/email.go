package email

import (
	"fmt"
	"log"
	"net/smtp"
)

// Sender delivers transactional mail.
type Sender interface {
	SendResetCode(to, code string, validMinutes int) error
}

// SMTP sends through a plain-auth SMTP relay (SMTP_* settings).
type SMTP struct {
	Host, Port, User, Pass, From string
}

func (s SMTP) send(to, subject, body string) error {
	if s.Host == "" || s.Port == "" || s.User == "" || s.Pass == "" || s.From == "" {
		return fmt.Errorf("SMTP environment variables missing")
	}
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)
	auth := smtp.PlainAuth("", s.User, s.Pass, s.Host)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", s.From, to, subject, body))
	return smtp.SendMail(addr, auth, s.From, []string{to}, msg)
}

// SendResetCode mails a password reset code.
func (s SMTP) SendResetCode(to, code string, validMinutes int) error {
	subject := "Your HelpMyPet password reset code"
	body := fmt.Sprintf(`Hello,

We received a request to reset your password.

Your verification code is: %s

The code expires in %d minutes. If you did not request this change you can ignore this e-mail.

HelpMyPet`, code, validMinutes)
	if err := s.send(to, subject, body); err != nil {
		return err
	}
	log.Printf("[email][reset_code] to=%s", to)
	return nil
}

// SendNewsletterWelcome confirms a newsletter subscription.
func (s SMTP) SendNewsletterWelcome(to string) error {
	subject := "Welcome to HelpMyPet.AI Newsletter"
	body := `Hello,

Thank you for subscribing to the HelpMyPet.AI newsletter. We will keep you posted on new features and pet care tips.

HelpMyPet`
	if err := s.send(to, subject, body); err != nil {
		return err
	}
	log.Printf("[email][newsletter_welcome] to=%s", to)
	return nil
}
