package mapper

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"WarrenFinSaas/api/constants"
	"WarrenFinSaas/internal/config"
	"WarrenFinSaas/internal/mapper"
)

// Store persists finalized statements. The header row goes through the
// plain database/sql connection; the account rows are staged in bulk with
// CopyFrom on the pgx pool.
type Store struct {
	db      *sql.DB
	pgxPool *pgxpool.Pool
}

func NewStore(db *sql.DB, pgxPool *pgxpool.Pool) *Store {
	return &Store{db: db, pgxPool: pgxPool}
}

// SavedStatement is the persistence hand-off assembled by the save handler.
type SavedStatement struct {
	SessionID     string
	FileName      string
	EntityName    string
	StatementDate string
	Summary       mapper.MappingSummary
	Accounts      []*mapper.AccountNode
}

// SaveStatement writes the statement header and all account rows, returning
// the new statement id. A failed account insert removes the header again so
// a partial save never lingers.
func (s *Store) SaveStatement(ctx context.Context, st SavedStatement) (string, error) {
	if s.db == nil || s.pgxPool == nil {
		return "", fmt.Errorf("statement store is not configured")
	}

	statementID := uuid.New().String()
	periodLabels := make([]string, 0, len(st.Summary.PeriodColumns))
	for _, pc := range st.Summary.PeriodColumns {
		periodLabels = append(periodLabels, pc.Label)
	}
	periodTotalsJSON, err := json.Marshal(st.Summary.PeriodTotals)
	if err != nil {
		return "", err
	}

	var statementDate interface{}
	if st.StatementDate != "" {
		d, err := time.Parse(constants.DateFormat, st.StatementDate)
		if err != nil {
			return "", fmt.Errorf("invalid statementDate %q: %w", st.StatementDate, err)
		}
		statementDate = d
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mapped_statements
			(statement_id, session_id, file_name, entity_name, statement_date,
			 statement_type, currency, period_labels, total_items, total_rows,
			 detail_rows, period_totals, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now())`,
		statementID, st.SessionID, st.FileName, nullIfEmpty(st.EntityName), statementDate,
		st.Summary.StatementType, nullIfEmpty(st.Summary.Currency), pq.Array(periodLabels),
		st.Summary.TotalItemsCount, st.Summary.TotalRowsCount,
		st.Summary.DetailRowsCount, periodTotalsJSON,
	)
	if err != nil {
		return "", fmt.Errorf("insert statement header: %w", err)
	}

	if err := s.copyAccounts(ctx, statementID, st.Accounts); err != nil {
		// best-effort rollback of the header
		s.db.ExecContext(ctx, `DELETE FROM mapped_statements WHERE statement_id = $1`, statementID)
		return "", err
	}
	return statementID, nil
}

var accountColumns = []string{
	"statement_id", "row_index", "account_name", "account_code",
	"category", "subcategory", "is_inflow", "is_total", "is_subtotal",
	"is_calculated", "is_section_header", "confidence",
	"has_financial_data", "parent_total_row", "periods",
}

func (s *Store) copyAccounts(ctx context.Context, statementID string, accounts []*mapper.AccountNode) error {
	for start := 0; start < len(accounts); start += config.SaveBatchSize {
		end := start + config.SaveBatchSize
		if end > len(accounts) {
			end = len(accounts)
		}
		batch := accounts[start:end]

		rows := make([][]interface{}, len(batch))
		for i, n := range batch {
			periodsJSON, err := json.Marshal(n.Periods)
			if err != nil {
				return err
			}
			var parent interface{}
			if n.ParentTotalID != nil {
				parent = *n.ParentTotalID
			}
			rows[i] = []interface{}{
				statementID, n.RowIndex, n.AccountName, nullIfEmpty(n.AccountCode),
				n.Category, nullIfEmpty(n.Subcategory), n.IsInflow, n.IsTotal, n.IsSubtotal,
				n.IsCalculated, n.IsSectionHeader, n.Confidence,
				n.HasFinancialData, parent, periodsJSON,
			}
		}
		if _, err := s.pgxPool.CopyFrom(
			ctx,
			pgx.Identifier{"mapped_statement_accounts"},
			accountColumns,
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("stage account rows: %w", err)
		}
	}
	return nil
}

// BulkReclassify rewrites categories for many saved rows in one statement,
// pairing row indexes with categories through unnest.
func (s *Store) BulkReclassify(ctx context.Context, statementID string, rowIndexes []int64, categories []string) error {
	if len(rowIndexes) != len(categories) {
		return fmt.Errorf("rowIndexes and categories must pair up")
	}
	if len(rowIndexes) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE mapped_statement_accounts AS a
		SET category = u.category
		FROM unnest($2::bigint[], $3::text[]) AS u(row_index, category)
		WHERE a.statement_id = $1 AND a.row_index = u.row_index`,
		statementID, pq.Array(rowIndexes), pq.Array(categories),
	)
	return err
}

func nullIfEmpty(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
