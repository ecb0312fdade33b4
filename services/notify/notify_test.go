package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/registration"
	emailsvc "github.com/trezcool/registrar/services/email"
	testutils "github.com/trezcool/registrar/tests"
)

func TestMulti(t *testing.T) {
	logger := new(testutils.Logger)
	feed := NewFeed(time.Minute)
	m := Multi{NewLogNotifier(logger), feed}

	m.Notify("Registration closed", registration.SeveritySuccess)
	m.Notify("Failed to close registration", registration.SeverityError)

	entries := logger.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "WARN", entries[1].Level)
	assert.Contains(t, entries[1].Msg, "Failed to close registration")
	assert.Len(t, feed.Recent(), 2)
}

func TestFeed(t *testing.T) {
	feed := NewFeed(50 * time.Millisecond)
	feed.Notify("first", registration.SeveritySuccess)
	feed.Notify("second", registration.SeverityError)

	recent := feed.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].Message, "most recent first")
	assert.Equal(t, registration.SeverityError, recent[0].Severity)
	assert.Equal(t, "first", recent[1].Message)

	assert.Eventually(t, func() bool { return len(feed.Recent()) == 0 }, time.Second, 10*time.Millisecond, "entries expire")

	feed.Notify("third", registration.SeveritySuccess)
	feed.Flush()
	assert.Empty(t, feed.Recent())
}

func TestMetricsNotifier(t *testing.T) {
	reg := prometheus.NewRegistry()
	n, err := NewMetricsNotifier(reg)
	require.NoError(t, err)

	n.Notify("Registration closed", registration.SeveritySuccess)
	n.Notify("Failed to open registration", registration.SeverityError)
	n.Notify("Failed to close registration", registration.SeverityError)

	assert.Equal(t, float64(1), testutil.ToFloat64(n.total.WithLabelValues("success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(n.total.WithLabelValues("error")))

	_, err = NewMetricsNotifier(reg)
	assert.Error(t, err, "registering twice fails")
}

func TestMailNotifier(t *testing.T) {
	conf := testutils.NewConfig()
	logger := new(testutils.Logger)
	core.ParseEmailTemplates(conf, logger)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	sentAt := time.Date(2026, 3, 1, 17, 30, 0, 0, time.UTC)
	nowFunc = func() time.Time { return sentAt }
	defer func() { nowFunc = time.Now }()

	NewMailNotifier(mailSvc, conf).Notify("course C2 is archived", registration.SeverityError)

	sent := mailSvc.SentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "registrar@test.cd", msg.To[0].Address)
	assert.Equal(t, "Registration failure", msg.Subject)
	assert.True(t, strings.Contains(msg.TextContent, "[ERROR] course C2 is archived"), msg.TextContent)
	assert.Contains(t, msg.TextContent, "01/03/2026 05:30 PM UTC")
	assert.Contains(t, msg.HTMLContent, "course C2 is archived")
	assert.Empty(t, logger.Entries())

	conf.NotificationRecipients = nil
	NewMailNotifier(mailSvc, conf).Notify("Registration closed", registration.SeveritySuccess)
	assert.Len(t, mailSvc.SentMessages(), 1, "no recipient, no email")
}
