// Package notify mails budget alerts.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/spendwise-dev/spendwise/internal/aggregate"
	"github.com/spendwise-dev/spendwise/internal/config"
	"github.com/spendwise-dev/spendwise/internal/format"
)

// Sender mails budget alerts over SMTP. Each budget window is alerted at
// most once per Sender.
type Sender struct {
	cfg    config.SMTPConfig
	logger *logrus.Logger
	send   func(e *email.Email) error

	mu      sync.Mutex
	alerted map[string]bool
}

// NewSender creates a Sender for cfg.
func NewSender(cfg config.SMTPConfig, logger *logrus.Logger) *Sender {
	s := &Sender{cfg: cfg, logger: logger, alerted: make(map[string]bool)}
	s.send = func(e *email.Email) error {
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		var auth smtp.Auth
		if cfg.Username != "" {
			auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		}
		return e.Send(addr, auth)
	}
	return s
}

// Enabled reports whether SMTP is configured.
func (s *Sender) Enabled() bool {
	return s.cfg.Host != "" && s.cfg.To != ""
}

func alertKey(p aggregate.Progress) string {
	return p.Budget.ID + "@" + p.WindowStart.String()
}

// SendBudgetAlerts mails one message listing every alert not yet sent. It
// returns how many budgets were included.
func (s *Sender) SendBudgetAlerts(alerts []aggregate.Progress, currency string) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}

	s.mu.Lock()
	var fresh []aggregate.Progress
	for _, p := range alerts {
		if !s.alerted[alertKey(p)] {
			fresh = append(fresh, p)
		}
	}
	s.mu.Unlock()
	if len(fresh) == 0 {
		return 0, nil
	}

	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{s.cfg.To}
	e.Subject = alertSubject(fresh)
	e.Text = []byte(alertBody(fresh, currency))

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send budget alert to %s: %v", s.cfg.To, err)
		return 0, fmt.Errorf("failed to send budget alert: %w", err)
	}

	s.mu.Lock()
	for _, p := range fresh {
		s.alerted[alertKey(p)] = true
	}
	s.mu.Unlock()

	s.logger.Infof("Email sent to %s: %s", s.cfg.To, e.Subject)
	return len(fresh), nil
}

func alertSubject(alerts []aggregate.Progress) string {
	over := 0
	for _, p := range alerts {
		if p.IsOverBudget {
			over++
		}
	}
	if over > 0 {
		return fmt.Sprintf("Budget alert: %d over budget", over)
	}
	if len(alerts) == 1 {
		return "Budget alert: 1 budget near its limit"
	}
	return fmt.Sprintf("Budget alert: %d budgets near their limit", len(alerts))
}

func alertBody(alerts []aggregate.Progress, currency string) string {
	var b strings.Builder
	b.WriteString("The following budgets need attention:\n\n")
	for _, p := range alerts {
		name := p.Budget.Name
		if name == "" {
			name = "Budget " + p.Budget.ID
		}
		status := "reached " + p.Percent.StringFixed(0) + "%"
		if p.IsOverBudget {
			status = "over by " + format.Currency(p.Remaining.Neg(), currency)
		}
		fmt.Fprintf(&b, "- %s: spent %s of %s (%s), %s\n",
			name,
			format.Currency(p.Spent, currency),
			format.Currency(p.Budget.Amount, currency),
			format.DateRangeLabel(p.WindowStart, p.WindowEnd.AddDays(-1)),
			status,
		)
	}
	b.WriteString("\nSent by spendwise")
	return b.String()
}
