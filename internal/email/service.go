package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"sync"

	"github.com/familyspend/ExpenseTracker/internal/config"
	"github.com/familyspend/ExpenseTracker/internal/log"
)

const (
	subjectResetPassword    = "Reset your password"
	templateResetPassword   = "reset_password.html"
	subjectPasswordChanged  = "Your password was changed"
	templatePasswordChanged = "password_changed.html"

	defaultQueueSize = 100
)

//go:embed templates/*.html
var templateFS embed.FS

type Data interface {
	TemplateFileName() string
	Subject() string
}

type Sender interface {
	QueueEmail(to string, data Data)
}

type ResetPasswordData struct {
	UserName         string
	Code             string
	ExpiresInMinutes int
}

func (r ResetPasswordData) TemplateFileName() string {
	return templateResetPassword
}

func (r ResetPasswordData) Subject() string {
	return subjectResetPassword
}

type PasswordChangedData struct {
	UserName string
}

func (p PasswordChangedData) TemplateFileName() string {
	return templatePasswordChanged
}

func (p PasswordChangedData) Subject() string {
	return subjectPasswordChanged
}

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// DeliverFunc hands a rendered message to the outside world.
type DeliverFunc func(msg Message) error

type Service struct {
	templates *template.Template
	deliver   DeliverFunc
	logger    *log.Logger
	taskQueue chan Task

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

type Task struct {
	to   string
	data Data
}

// NewService sends through SMTP when cfg carries a host and credentials and
// only logs the rendered message otherwise.
func NewService(cfg config.EmailConfig, logger *log.Logger) (*Service, error) {
	logger = logger.WithComponent(log.ComponentEmail)

	var deliver DeliverFunc
	if cfg.SMTPConfigured() {
		deliver = smtpDelivery(cfg)
	} else {
		logger.Warn("SMTP is not configured, emails will only be logged")
		deliver = logDelivery(logger)
	}
	return NewServiceWithDelivery(deliver, logger)
}

func NewServiceWithDelivery(deliver DeliverFunc, logger *log.Logger) (*Service, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("error parsing email templates: %w", err)
	}

	s := &Service{
		templates: templates,
		deliver:   deliver,
		logger:    logger.WithComponent(log.ComponentEmail),
		taskQueue: make(chan Task, defaultQueueSize),
		done:      make(chan struct{}),
	}
	go s.worker()
	return s, nil
}

func (s *Service) worker() {
	defer close(s.done)
	for task := range s.taskQueue {
		if err := s.send(task.to, task.data); err != nil {
			s.logger.Error("error sending email", "to", task.to, log.FieldError, err)
		}
	}
}

// QueueEmail never blocks the caller. When the queue is full or closed the
// email is dropped and logged.
func (s *Service) QueueEmail(to string, data Data) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.Warn("email queue closed, dropping email", "to", to, "subject", data.Subject())
		return
	}
	select {
	case s.taskQueue <- Task{to: to, data: data}:
	default:
		s.logger.Warn("email queue full, dropping email", "to", to, "subject", data.Subject())
	}
}

// Close stops accepting emails and waits for the queued ones to be sent.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.taskQueue)
	s.mu.Unlock()
	<-s.done
}

func (s *Service) send(to string, data Data) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, data.TemplateFileName(), data); err != nil {
		return fmt.Errorf("error executing template: %w", err)
	}
	return s.deliver(Message{To: to, Subject: data.Subject(), Body: body.String()})
}

func smtpDelivery(cfg config.EmailConfig) DeliverFunc {
	return func(msg Message) error {
		message := []byte("To: " + msg.To + "\r\n" +
			"Subject: " + msg.Subject + "\r\n" +
			"MIME-version: 1.0;\r\n" +
			"Content-Type: text/html; charset=\"UTF-8\";\r\n\r\n" +
			msg.Body)

		auth := smtp.PlainAuth("", cfg.Address, cfg.Password, cfg.SMTPHost)
		err := smtp.SendMail(cfg.SMTPHost+":"+cfg.SMTPPort, auth, cfg.Address, []string{msg.To}, message)
		if err != nil {
			return fmt.Errorf("error sending email: %w", err)
		}
		return nil
	}
}

func logDelivery(logger *log.Logger) DeliverFunc {
	return func(msg Message) error {
		logger.Info("email not sent, SMTP disabled", "to", msg.To, "subject", msg.Subject)
		logger.Debug("email body", "to", msg.To, "body", msg.Body)
		return nil
	}
}
