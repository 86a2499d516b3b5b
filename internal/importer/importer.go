// Package importer turns bank CSV statements into transaction drafts.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spendwise-dev/spendwise/internal/export"
	"github.com/spendwise-dev/spendwise/internal/model"
)

// Parser converts a CSV file into transaction drafts.
type Parser interface {
	Parse(r io.Reader) ([]model.Transaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file in an inbox directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats lists the registered format names.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		out = append(out, k)
	}
	return out
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ChaseParser{})
	r.Register(&NativeParser{})
	return r
}

// NativeParser reads files produced by the export command.
type NativeParser struct{}

func (p *NativeParser) Format() string { return "spendwise" }

// Parse reads an export file; ids are dropped so rows import as new records.
func (p *NativeParser) Parse(r io.Reader) ([]model.Transaction, error) {
	txs, err := export.ReadTransactions(r)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		txs[i].ID = ""
	}
	return txs, nil
}

// ParseFile opens path and parses it with the parser for format.
func (r *Registry) ParseFile(path, format string) ([]model.Transaction, error) {
	p := r.Get(format)
	if p == nil {
		return nil, fmt.Errorf("unknown import format %q", format)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	txs, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return txs, nil
}

// Categorize fills in a category for drafts that have none, by type.
func Categorize(drafts []model.Transaction, expenseCat, incomeCat string) []model.Transaction {
	out := make([]model.Transaction, len(drafts))
	for i, d := range drafts {
		if d.ResolvedCategoryID() == "" {
			if d.IsExpense() {
				d.CategoryID = expenseCat
			} else {
				d.CategoryID = incomeCat
			}
		}
		out[i] = d
	}
	return out
}

func dedupeKey(tx model.Transaction) string {
	return tx.Date.String() + "|" + string(tx.Type) + "|" + tx.Amount.StringFixed(2) + "|" + strings.ToLower(strings.TrimSpace(tx.Description))
}

// Dedupe drops drafts that match an existing transaction on date, type,
// amount and description. Duplicates within drafts are kept.
func Dedupe(drafts, existing []model.Transaction) (fresh []model.Transaction, skipped int) {
	seen := make(map[string]bool, len(existing))
	for _, tx := range existing {
		seen[dedupeKey(tx)] = true
	}
	for _, d := range drafts {
		if seen[dedupeKey(d)] {
			skipped++
			continue
		}
		fresh = append(fresh, d)
	}
	return fresh, skipped
}

// processedDir is the subdirectory for processed CSVs.
const processedDir = "processed"

// Scan returns CSV files in dir.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from dir to dir/processed/.
func MarkProcessed(dir, fileName string) error {
	src := filepath.Join(dir, fileName)
	dstDir := filepath.Join(dir, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
