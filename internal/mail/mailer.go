// Package mail sends notification email over SMTP.
package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"smartexpense/internal/core"
)

type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func New(host string, port int, username, password, from string) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (m *Mailer) send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.host, m.port, m.username, m.password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

// SendTransactionRecorded notifies the budget owner of a new spend event.
func (m *Mailer) SendTransactionRecorded(to, firstName, category string, amount core.Money) error {
	subject := "Transaction recorded"
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>A transaction of <strong>%s</strong> was recorded in your <strong>%s</strong> category.</p>",
		core.Capitalize(firstName), amount, category)
	return m.send(to, subject, body)
}

// SendRewardGranted notifies the budget owner of a cashback credit.
func (m *Mailer) SendRewardGranted(to, firstName string, amount core.Money) error {
	subject := "You earned a reward"
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your last budget period closed under its limit. A reward of <strong>%s</strong> has been added to your account.</p>",
		core.Capitalize(firstName), amount)
	return m.send(to, subject, body)
}
