package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendwise-dev/spendwise/internal/model"
)

// ChaseParser reads the activity CSV that Chase online banking exports for a
// checking account.
type ChaseParser struct{}

// Column layout of a Chase activity export. The trailing Balance and
// "Check or Slip #" columns are present but unused.
const (
	chaseDateLayout = "01/02/2006"
	chaseColumns    = 7
	chaseColDate    = 1
	chaseColDesc    = 2
	chaseColAmount  = 3
	chaseColType    = 4
)

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// Parse reads a Chase CSV. Debits become expenses and credits income.
func (p *ChaseParser) Parse(r io.Reader) ([]model.Transaction, error) {
	lines, err := p.ParseRows(r)
	if err != nil {
		return nil, err
	}
	drafts := make([]model.Transaction, 0, len(lines))
	for _, line := range lines {
		drafts = append(drafts, line.Draft())
	}
	return drafts, nil
}

// ParseRows returns the statement lines with the bank's own signed amounts,
// in file order. A file holding only the header yields no lines.
func (p *ChaseParser) ParseRows(r io.Reader) ([]model.BankTransaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseColumns
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chase statement header: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(header[chaseColDate]), "Posting Date") {
		return nil, fmt.Errorf("chase statement header: column %d is %q, want \"Posting Date\"", chaseColDate+1, header[chaseColDate])
	}

	var lines []model.BankTransaction
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("chase statement: %w", err)
		}
		line, _ := cr.FieldPos(0)
		bt, err := chaseLine(rec)
		if err != nil {
			return nil, fmt.Errorf("chase statement line %d: %w", line, err)
		}
		lines = append(lines, bt)
	}
	return lines, nil
}

func chaseLine(rec []string) (model.BankTransaction, error) {
	posted := strings.TrimSpace(rec[chaseColDate])
	date, err := time.Parse(chaseDateLayout, posted)
	if err != nil {
		return model.BankTransaction{}, fmt.Errorf("posting date %q is not MM/DD/YYYY", posted)
	}

	raw := strings.ReplaceAll(strings.TrimSpace(rec[chaseColAmount]), ",", "")
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return model.BankTransaction{}, fmt.Errorf("amount %q is not a number", rec[chaseColAmount])
	}

	desc := strings.TrimSpace(rec[chaseColDesc])
	return model.BankTransaction{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Reference:   statementRef(date, desc),
		Type:        strings.TrimSpace(rec[chaseColType]),
	}, nil
}

// statementRef keys a line for duplicate detection across re-imports, e.g.
// chase_20250103_GITHUBPROS: posting date plus the first ten alphanumerics of
// the description.
func statementRef(date time.Time, desc string) string {
	var key strings.Builder
	for _, r := range desc {
		if key.Len() == 10 {
			break
		}
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			key.WriteRune(r)
		}
	}
	return "chase_" + date.Format("20060102") + "_" + key.String()
}
