// Package settings stores user preferences: display currency, date format,
// theme, notification and privacy toggles.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spendwise-dev/spendwise/internal/format"
)

// Themes accepted by Set("theme", ...).
var Themes = []string{"light", "dark", "system"}

// Preferences is the persisted settings document.
type Preferences struct {
	Theme         string        `yaml:"theme"`
	Currency      string        `yaml:"currency"`
	DateFormat    string        `yaml:"date_format"`
	Notifications Notifications `yaml:"notifications"`
	Privacy       Privacy       `yaml:"privacy"`
}

type Notifications struct {
	Email              bool `yaml:"email"`
	Push               bool `yaml:"push"`
	SMS                bool `yaml:"sms"`
	BudgetAlerts       bool `yaml:"budget_alerts"`
	RecurringReminders bool `yaml:"recurring_reminders"`
	WeeklyReports      bool `yaml:"weekly_reports"`
	MonthlyReports     bool `yaml:"monthly_reports"`
}

type Privacy struct {
	DataSharing bool `yaml:"data_sharing"`
	Analytics   bool `yaml:"analytics"`
}

// Default returns the preferences of a fresh install.
func Default() Preferences {
	return Preferences{
		Theme:      "system",
		Currency:   format.DefaultCurrency,
		DateFormat: format.DefaultDatePattern,
		Notifications: Notifications{
			Email:              true,
			Push:               true,
			BudgetAlerts:       true,
			RecurringReminders: true,
			MonthlyReports:     true,
		},
		Privacy: Privacy{
			Analytics: true,
		},
	}
}

// Load reads preferences from path. A missing file yields the defaults.
func Load(path string) (Preferences, error) {
	prefs := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return prefs, nil
	}
	if err != nil {
		return prefs, fmt.Errorf("reading settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return Default(), fmt.Errorf("parsing settings: %w", err)
	}
	return prefs, nil
}

// Save writes preferences to path.
func Save(path string, prefs Preferences) error {
	data, err := yaml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

// Reset restores the defaults on disk.
func Reset(path string) (Preferences, error) {
	prefs := Default()
	return prefs, Save(path, prefs)
}

type setter func(p *Preferences, value string) error

func boolSetter(field func(p *Preferences) *bool) setter {
	return func(p *Preferences, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%q is not true or false", value)
		}
		*field(p) = b
		return nil
	}
}

var setters = map[string]setter{
	"theme": func(p *Preferences, v string) error {
		v = strings.ToLower(v)
		for _, t := range Themes {
			if t == v {
				p.Theme = v
				return nil
			}
		}
		return fmt.Errorf("unknown theme %q (want one of %s)", v, strings.Join(Themes, ", "))
	},
	"currency": func(p *Preferences, v string) error {
		info, ok := format.LookupCurrency(v)
		if !ok {
			return fmt.Errorf("unsupported currency %q", v)
		}
		p.Currency = info.Code
		return nil
	},
	"date_format": func(p *Preferences, v string) error {
		for _, known := range format.DatePatterns {
			if known == v {
				p.DateFormat = v
				return nil
			}
		}
		return fmt.Errorf("unknown date format %q (want one of %s)", v, strings.Join(format.DatePatterns, ", "))
	},
	"notifications.email":               boolSetter(func(p *Preferences) *bool { return &p.Notifications.Email }),
	"notifications.push":                boolSetter(func(p *Preferences) *bool { return &p.Notifications.Push }),
	"notifications.sms":                 boolSetter(func(p *Preferences) *bool { return &p.Notifications.SMS }),
	"notifications.budget_alerts":       boolSetter(func(p *Preferences) *bool { return &p.Notifications.BudgetAlerts }),
	"notifications.recurring_reminders": boolSetter(func(p *Preferences) *bool { return &p.Notifications.RecurringReminders }),
	"notifications.weekly_reports":      boolSetter(func(p *Preferences) *bool { return &p.Notifications.WeeklyReports }),
	"notifications.monthly_reports":     boolSetter(func(p *Preferences) *bool { return &p.Notifications.MonthlyReports }),
	"privacy.data_sharing":              boolSetter(func(p *Preferences) *bool { return &p.Privacy.DataSharing }),
	"privacy.analytics":                 boolSetter(func(p *Preferences) *bool { return &p.Privacy.Analytics }),
}

// Keys lists every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set changes one preference by dotted key, e.g. "notifications.sms".
func (p *Preferences) Set(key, value string) error {
	set, ok := setters[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	return set(p, strings.TrimSpace(value))
}
