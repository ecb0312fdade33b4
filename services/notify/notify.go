// Package notify implements the registration.Notifier sinks: logs, feed, metrics and emails.
package notify

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/registration"
)

var nowFunc = time.Now

// Multi forwards notifications to every notifier, in order.
type Multi []registration.Notifier

var _ registration.Notifier = Multi(nil)

func (m Multi) Notify(message string, severity registration.Severity) {
	for _, n := range m {
		n.Notify(message, severity)
	}
}

// LogNotifier logs notifications; errors as warnings.
type LogNotifier struct {
	logger core.Logger
}

func NewLogNotifier(logger core.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(message string, severity registration.Severity) {
	msg := fmt.Sprintf("registration notification: %s", message)
	if severity == registration.SeverityError {
		n.logger.Warn(msg)
		return
	}
	n.logger.Info(msg)
}

// MetricsNotifier counts notifications by severity.
type MetricsNotifier struct {
	total *prometheus.CounterVec
}

func NewMetricsNotifier(reg prometheus.Registerer) (*MetricsNotifier, error) {
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_notifications_total",
		Help: "Registration lifecycle notifications, by severity.",
	}, []string{"severity"})
	if err := reg.Register(total); err != nil {
		return nil, err
	}
	return &MetricsNotifier{total: total}, nil
}

func (n *MetricsNotifier) Notify(_ string, severity registration.Severity) {
	n.total.WithLabelValues(string(severity)).Inc()
}

// MailNotifier emails notifications to the configured recipients.
type MailNotifier struct {
	mailSvc core.EmailService
	conf    *core.Config
}

// MailData is the data of the "registration_notification" email template.
type MailData struct {
	Message  string
	Severity string
	SentAt   time.Time
}

func NewMailNotifier(mailSvc core.EmailService, conf *core.Config) *MailNotifier {
	return &MailNotifier{mailSvc: mailSvc, conf: conf}
}

func (n *MailNotifier) Notify(message string, severity registration.Severity) {
	to := n.conf.NotificationRecipientAddresses()
	if len(to) == 0 {
		return
	}
	subject := "Registration update"
	if severity == registration.SeverityError {
		subject = "Registration failure"
	}
	n.mailSvc.SendMessages(&core.EmailMessage{
		To:           to,
		Subject:      subject,
		TemplateName: "registration_notification",
		TemplateData: MailData{
			Message:  message,
			Severity: string(severity),
			SentAt:   nowFunc().UTC(),
		},
	})
}
