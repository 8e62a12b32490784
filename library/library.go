// library/library.go

package library

import (
	"context"
	"fmt"
	"strings"

	"RekordPdbPatcher/common"
)

// Mode selects what the library step does
type Mode int

const (
	// ModeOff skips the library database
	ModeOff Mode = iota
	// ModeInspect counts references without writing
	ModeInspect
	// ModeRewrite replaces references inside a transaction after a backup
	ModeRewrite
)

// String returns the flag value of the mode
func (m Mode) String() string {
	switch m {
	case ModeInspect:
		return "inspect"
	case ModeRewrite:
		return "rewrite"
	default:
		return "off"
	}
}

// ParseMode parses "off", "inspect" or "rewrite" (case-insensitive, empty means off)
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return ModeOff, nil
	case "inspect":
		return ModeInspect, nil
	case "rewrite":
		return ModeRewrite, nil
	}
	return ModeOff, fmt.Errorf("unknown library mode %q", s)
}

// ColumnHit counts rows of one column holding one extension
type ColumnHit struct {
	Table  string
	Column string
	Ext    string
	Rows   int
}

// Report describes one library step
type Report struct {
	Path       string
	Mode       Mode
	BackupPath string
	Tables     int
	Hits       []ColumnHit
	// Updated is the number of rows changed by a rewrite
	Updated int64
}

// TotalHits sums the row counts of all hits
func (r *Report) TotalHits() int {
	total := 0
	for _, h := range r.Hits {
		total += h.Rows
	}
	return total
}

// Run opens the database at path and inspects or rewrites references for every
// (old, new) pair. Inspect mode only counts the old extensions. Rewrite mode backs
// the file up when there is something to change and applies all pairs in a
// single transaction.
func Run(ctx context.Context, path, key string, mode Mode, pairs [][2]string, logger *common.Logger) (*Report, error) {
	report := &Report{Path: path, Mode: mode}
	if mode == ModeOff {
		return report, nil
	}

	m, err := NewDBManager(path, key, logger)
	if err != nil {
		return report, err
	}
	defer m.Finalize()

	if err := m.Connect(); err != nil {
		return report, err
	}

	tables, err := m.Tables()
	if err != nil {
		return report, err
	}
	report.Tables = len(tables)

	columns := make(map[string][]string, len(tables))
	for _, table := range tables {
		cols, err := m.TextColumns(table)
		if err != nil {
			return report, err
		}
		columns[table] = cols
	}

	if err := inspect(ctx, m, tables, columns, pairs, report); err != nil {
		return report, err
	}
	logger.Info("Library database %s: %d row reference(s) in %d table(s)", path, report.TotalHits(), report.Tables)

	if mode != ModeRewrite || report.TotalHits() == 0 {
		return report, nil
	}

	// no transaction is open here, so the file on disk is consistent
	backup, err := m.BackupDatabase()
	if err != nil {
		return report, err
	}
	report.BackupPath = backup

	if err := rewrite(ctx, m, report.Hits, pairs, report); err != nil {
		return report, err
	}
	logger.Info("Library database %s: rewrote %d row(s)", path, report.Updated)
	return report, nil
}

func inspect(ctx context.Context, m *DBManager, tables []string, columns map[string][]string, pairs [][2]string, report *Report) error {
	for _, table := range tables {
		for _, col := range columns[table] {
			for _, pair := range pairs {
				if err := ctx.Err(); err != nil {
					return err
				}
				q := fmt.Sprintf("SELECT count(*) FROM %s WHERE instr(%s, ?) > 0", quoteIdent(table), quoteIdent(col))
				n, err := m.QueryInt(q, pair[0])
				if err != nil {
					return fmt.Errorf("failed to count %s in %s.%s: %w", pair[0], table, col, err)
				}
				if n > 0 {
					report.Hits = append(report.Hits, ColumnHit{Table: table, Column: col, Ext: pair[0], Rows: n})
				}
			}
		}
	}
	return nil
}

func rewrite(ctx context.Context, m *DBManager, hits []ColumnHit, pairs [][2]string, report *Report) error {
	newExt := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		newExt[pair[0]] = pair[1]
	}

	if err := m.BeginTransaction(); err != nil {
		return err
	}

	for _, h := range hits {
		if err := ctx.Err(); err != nil {
			m.RollbackTransaction()
			return err
		}
		q := fmt.Sprintf("UPDATE %s SET %s = REPLACE(%s, ?, ?) WHERE instr(%s, ?) > 0",
			quoteIdent(h.Table), quoteIdent(h.Column), quoteIdent(h.Column), quoteIdent(h.Column))
		n, err := m.Execute(q, h.Ext, newExt[h.Ext], h.Ext)
		if err != nil {
			m.RollbackTransaction()
			return fmt.Errorf("failed to rewrite %s.%s: %w", h.Table, h.Column, err)
		}
		report.Updated += n
	}

	return m.CommitTransaction()
}
