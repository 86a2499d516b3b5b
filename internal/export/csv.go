// Package export writes and reads the transactions CSV format.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spendwise-dev/spendwise/internal/model"
)

// Header is the CSV header for transaction exports.
const Header = "id,date,type,amount,description,category_id,category,account_id,notes"

const (
	numFields   = 9
	colID       = 0
	colDate     = 1
	colType     = 2
	colAmount   = 3
	colDesc     = 4
	colCatID    = 5
	colCategory = 6
	colAcctID   = 7
	colNotes    = 8
)

// WriteTransactions writes txs (including header). Category names are
// resolved from the embedded category first, then cats.
func WriteTransactions(w io.Writer, txs []model.Transaction, cats []model.Category) error {
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}

	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, tx := range txs {
		name := names[tx.ResolvedCategoryID()]
		if tx.Category != nil && tx.Category.Name != "" {
			name = tx.Category.Name
		}
		if err := cw.Write(MarshalTransaction(tx, name)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(tx model.Transaction, categoryName string) []string {
	row := make([]string, numFields)
	row[colID] = tx.ID
	row[colDate] = tx.Date.String()
	row[colType] = string(tx.Type)
	row[colAmount] = tx.Amount.StringFixed(2)
	row[colDesc] = tx.Description
	row[colCatID] = tx.ResolvedCategoryID()
	row[colCategory] = categoryName
	row[colAcctID] = tx.AccountID
	row[colNotes] = tx.Notes
	return row
}

// ReadTransactions reads every row of an export. The category name column
// is informational and ignored.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var txs []model.Transaction
	for i, rec := range records[1:] {
		tx, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := model.ParseDate(record[colDate])
	if err != nil {
		return model.Transaction{}, err
	}

	typ, ok := model.ParseTransactionType(record[colType])
	if !ok {
		return model.Transaction{}, fmt.Errorf("unknown type %q", record[colType])
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	return model.Transaction{
		ID:          record[colID],
		Date:        date,
		Type:        typ,
		Amount:      amount,
		Description: record[colDesc],
		CategoryID:  record[colCatID],
		AccountID:   record[colAcctID],
		Notes:       record[colNotes],
	}, nil
}
