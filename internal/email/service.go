package email

import (
	"fmt"
	"net/smtp"
)

// Service handles email sending via SMTP
type Service struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewService creates a new email service. Empty username disables SMTP auth
// (local relay).
func NewService(host, port, username, password, from string) *Service {
	return &Service{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// SendOrderConfirmation sends an order confirmation email after checkout.
func (s *Service) SendOrderConfirmation(to, orderID string, total int64, items []OrderItem) error {
	subject := fmt.Sprintf("Order confirmation #%s", shortID(orderID))
	body := BuildOrderConfirmationBody(orderID, total, items)
	return s.send(to, subject, body)
}

// SendPaymentReceipt sends a payment-received email once the gateway
// confirms.
func (s *Service) SendPaymentReceipt(to, orderID string, total int64) error {
	subject := fmt.Sprintf("Payment received for order #%s", shortID(orderID))
	body := BuildPaymentReceiptBody(orderID, total)
	return s.send(to, subject, body)
}

// SendOrderCancellation notifies the customer that an unpaid order was
// cancelled.
func (s *Service) SendOrderCancellation(to, orderID, reason string) error {
	subject := fmt.Sprintf("Order #%s cancelled", shortID(orderID))
	body := BuildOrderCancellationBody(orderID, reason)
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	var a smtp.Auth
	if s.username != "" {
		a = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	return smtp.SendMail(addr, a, s.from, []string{to}, []byte(msg))
}

func shortID(orderID string) string {
	if len(orderID) > 8 {
		return orderID[:8]
	}
	return orderID
}
