package mail

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
)

// Sender relays form submissions as emails. Configured reports whether the
// SMTP account and delivery address are set; handlers check it before
// attempting a send.
type Sender interface {
	Configured() bool
	SendContact(msg ContactMessage) error
	SendBooking(req BookingRequest) error
}

// ContactMessage is a contact-form submission.
type ContactMessage struct {
	Name    string
	Email   string
	Message string
}

// BookingRequest is a tour-booking-form submission.
type BookingRequest struct {
	Name         string
	Email        string
	Phone        string
	Dates        string
	Destinations []string
	Travelers    string
	Message      string
}

// Mailer sends plain-text mail through an SMTP account using STARTTLS.
// Enquiries are delivered to a single configured address with the
// submitter's address as Reply-To.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	fromName string
	to       string
}

// NewMailer returns a Mailer. An empty username, password, or to address
// leaves the mailer unconfigured; sends will be refused by the handlers.
func NewMailer(host string, port int, username, password, fromName, to string) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		fromName: fromName,
		to:       to,
	}
}

// Configured reports whether the SMTP credentials and delivery address are set.
func (m *Mailer) Configured() bool {
	return m.username != "" && m.password != "" && m.to != ""
}

// SendContact relays a contact-form enquiry.
func (m *Mailer) SendContact(msg ContactMessage) error {
	subject := "New Contact Form Enquiry from " + msg.Name
	return m.send(msg.Email, subject, contactBody(msg))
}

// SendBooking relays a tour-booking request.
func (m *Mailer) SendBooking(req BookingRequest) error {
	subject := "New Tour Booking Request from " + req.Name
	return m.send(req.Email, subject, bookingBody(req))
}

func (m *Mailer) send(replyTo, subject, body string) error {
	e := email.NewEmail()
	e.From = fmt.Sprintf("%q <%s>", m.fromName, m.username)
	e.To = []string{m.to}
	e.ReplyTo = []string{replyTo}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := e.SendWithStartTLS(addr, auth, &tls.Config{ServerName: m.host}); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func contactBody(msg ContactMessage) string {
	var b strings.Builder
	b.WriteString("You have received a new contact form enquiry from the website.\n\n")
	b.WriteString("Name: " + msg.Name + "\n")
	b.WriteString("Email: " + msg.Email + "\n\n")
	b.WriteString("Message:\n")
	b.WriteString(msg.Message)
	return b.String()
}

func bookingBody(req BookingRequest) string {
	message := req.Message
	if message == "" {
		message = "(No additional message)"
	}

	var b strings.Builder
	b.WriteString("New booking request:\n\n")
	b.WriteString("Name: " + req.Name + "\n")
	b.WriteString("Email: " + req.Email + "\n")
	b.WriteString("Phone: " + req.Phone + "\n")
	b.WriteString("Preferred Dates: " + req.Dates + "\n")
	b.WriteString("Destinations: " + strings.Join(req.Destinations, ", ") + "\n")
	b.WriteString("Number of Travelers: " + req.Travelers + "\n\n")
	b.WriteString("Message:\n")
	b.WriteString(message)
	return b.String()
}
