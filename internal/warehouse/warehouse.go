// Package warehouse talks to the analytical database: it loads the customs
// declaration reference used for identifier cross-checking and receives the
// finished batch rows.
package warehouse

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/xl-idp/reference-inn/internal/model"
)

// Pool abstracts the pgx pool operations the warehouse uses, so tests can
// substitute a mock.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// Client wraps the warehouse connection pool.
type Client struct {
	pool Pool
}

// New connects to the warehouse with a pgx pool.
func New(ctx context.Context, connString string) (*Client, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: parse config")
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "warehouse: ping")
	}
	return &Client{pool: pool}, nil
}

// NewWithPool wraps an existing pool. Used by tests.
func NewWithPool(pool Pool) *Client {
	return &Client{pool: pool}
}

func (c *Client) Close() {
	c.pool.Close()
}

const referenceQuery = `SELECT recipients_tin, senders_tin, name_of_the_recipient, senders_name
FROM fts
GROUP BY recipients_tin, senders_tin, name_of_the_recipient, senders_name`

// LoadReference pulls the declaration reference and returns identifier to
// name, recipients and senders merged. A sender entry wins over a recipient
// entry for the same identifier.
func (c *Client) LoadReference(ctx context.Context) (map[string]string, error) {
	rows, err := c.pool.Query(ctx, referenceQuery)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: load reference")
	}
	defer rows.Close()

	recipients := make(map[string]string)
	senders := make(map[string]string)
	for rows.Next() {
		var recipientTIN, senderTIN, recipientName, senderName string
		if err := rows.Scan(&recipientTIN, &senderTIN, &recipientName, &senderName); err != nil {
			return nil, eris.Wrap(err, "warehouse: scan reference row")
		}
		recipients[recipientTIN] = recipientName
		senders[senderTIN] = senderName
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "warehouse: iterate reference rows")
	}

	merged := make(map[string]string, len(recipients)+len(senders))
	for id, name := range recipients {
		merged[id] = name
	}
	for id, name := range senders {
		merged[id] = name
	}
	return merged, nil
}

const resultsTable = "reference_inn_all"

// InsertRows bulk-loads finished batch rows via the COPY protocol.
func (c *Client) InsertRows(ctx context.Context, rows []*model.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		var confidence *int
		if r.HasConfidence {
			v := r.ConfidenceRate
			confidence = &v
		}
		var country *string
		if r.Country != "" {
			v := string(r.Country)
			country = &v
		}
		values = append(values, []any{
			r.CompanyName,
			r.CompanyNameRus,
			r.SearchQuery,
			r.CompanyINN,
			r.CompanyINNCount,
			r.SumCountINN,
			r.CompanyINNMaxRank,
			r.CountINNInFTS,
			r.IsFTSFound,
			r.FTSCompanyName,
			r.IsINNFoundAuto,
			r.IsNameFromCache,
			r.CompanyNameUnified,
			country,
			confidence,
			r.OriginalFileName,
			r.OriginalFileParsed,
		})
	}

	n, err := c.pool.CopyFrom(ctx, pgx.Identifier{resultsTable}, model.CSVHeader(), pgx.CopyFromRows(values))
	if err != nil {
		return 0, eris.Wrapf(err, "warehouse: COPY INTO %s", resultsTable)
	}
	return n, nil
}

// CountUploaded reports how many rows of the given source file are already
// in the results table.
func (c *Client) CountUploaded(ctx context.Context, originalFileName string) (int64, error) {
	var count int64
	err := c.pool.QueryRow(ctx,
		`SELECT count(*) FROM reference_inn_all WHERE original_file_name = $1`,
		originalFileName,
	).Scan(&count)
	if err != nil {
		return 0, eris.Wrapf(err, "warehouse: count uploaded %s", originalFileName)
	}
	return count, nil
}
