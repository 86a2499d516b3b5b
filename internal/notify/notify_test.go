package notify

import (
	"errors"
	"io"
	"testing"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendwise-dev/spendwise/internal/aggregate"
	"github.com/spendwise-dev/spendwise/internal/config"
	"github.com/spendwise-dev/spendwise/internal/model"
)

func newTestSender(cfg config.SMTPConfig) (*Sender, *[]*email.Email) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := NewSender(cfg, logger)
	var sent []*email.Email
	s.send = func(e *email.Email) error {
		sent = append(sent, e)
		return nil
	}
	return s, &sent
}

func progress(id, name, amount, spent string) aggregate.Progress {
	b := model.Budget{
		ID:         id,
		Name:       name,
		CategoryID: "c1",
		Amount:     decimal.RequireFromString(amount),
		Period:     model.PeriodMonthly,
		StartDate:  model.MustParseDate("2024-03-01"),
	}
	txs := []model.Transaction{{
		ID:         "t" + id,
		Type:       model.TypeExpense,
		Amount:     decimal.RequireFromString(spent),
		CategoryID: "c1",
		Date:       model.MustParseDate("2024-03-10"),
	}}
	return aggregate.BudgetProgress(b, txs)
}

var smtpCfg = config.SMTPConfig{Host: "smtp.test", Port: 587, From: "alerts@test", To: "me@test"}

func TestSendBudgetAlerts(t *testing.T) {
	s, sent := newTestSender(smtpCfg)
	alerts := []aggregate.Progress{
		progress("1", "Food", "100", "120"),
		progress("2", "Fuel", "200", "170"),
	}

	n, err := s.SendBudgetAlerts(alerts, "USD")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, *sent, 1)

	e := (*sent)[0]
	assert.Equal(t, []string{"me@test"}, e.To)
	assert.Equal(t, "Budget alert: 1 over budget", e.Subject)
	body := string(e.Text)
	assert.Contains(t, body, "Food: spent $120.00 of $100.00")
	assert.Contains(t, body, "over by $20.00")
	assert.Contains(t, body, "Fuel: spent $170.00 of $200.00")
	assert.Contains(t, body, "reached 85%")
	assert.Contains(t, body, "Mar 01 - Mar 31, 2024")
}

func TestSendBudgetAlerts_OncePerWindow(t *testing.T) {
	s, sent := newTestSender(smtpCfg)
	alerts := []aggregate.Progress{progress("1", "Food", "100", "90")}

	_, err := s.SendBudgetAlerts(alerts, "USD")
	require.NoError(t, err)
	n, err := s.SendBudgetAlerts(alerts, "USD")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, *sent, 1)
}

func TestSendBudgetAlerts_Disabled(t *testing.T) {
	s, sent := newTestSender(config.SMTPConfig{})
	n, err := s.SendBudgetAlerts([]aggregate.Progress{progress("1", "Food", "100", "90")}, "USD")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, *sent)
}

func TestSendBudgetAlerts_FailureRetriesLater(t *testing.T) {
	s, _ := newTestSender(smtpCfg)
	s.send = func(*email.Email) error { return errors.New("connection refused") }
	alerts := []aggregate.Progress{progress("1", "Food", "100", "90")}

	_, err := s.SendBudgetAlerts(alerts, "USD")
	require.Error(t, err)

	var sent int
	s.send = func(*email.Email) error { sent++; return nil }
	n, err := s.SendBudgetAlerts(alerts, "USD")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, sent)
}
