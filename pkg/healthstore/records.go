package healthstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bipard/healthfetch/pkg/datekey"
	"github.com/bipard/healthfetch/pkg/record"
)

// Upsert inserts or overwrites the record for its date.
//
// Re-upserting the same date replaces the previous row (latest values win);
// data_date rows are never duplicated.
func (s *Store) Upsert(ctx context.Context, rec *record.HealthRecord) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cols := record.Columns
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	var updates []string
	for _, c := range cols {
		if c == "data_date" {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)
		 ON CONFLICT(data_date) DO UPDATE SET %s`,
		TableName, strings.Join(cols, ", "), placeholders, strings.Join(updates, ", "))

	args := make([]any, len(cols))
	for i, v := range rec.Values() {
		args[i] = v
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert record for %s: %w", rec.Date(), err)
	}
	return nil
}

// ExistingDates returns the subset of dates that already have a stored row,
// resolved with a single IN query regardless of range size.
func (s *Store) ExistingDates(ctx context.Context, dates []datekey.Key) (map[datekey.Key]bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	existing := make(map[datekey.Key]bool, len(dates))
	if len(dates) == 0 {
		return existing, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(dates)), ", ")
	args := make([]any, len(dates))
	for i, d := range dates {
		args[i] = d.String()
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT data_date FROM %s WHERE data_date IN (%s)`, TableName, placeholders),
		args...)
	if err != nil {
		return nil, fmt.Errorf("query existing dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan existing date: %w", err)
		}
		existing[datekey.Key(d)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing dates: %w", err)
	}
	return existing, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var count int64
	if err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, TableName)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// RecentDates returns up to limit stored dates, newest first.
func (s *Store) RecentDates(ctx context.Context, limit int) ([]datekey.Key, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT data_date FROM %s ORDER BY data_date DESC LIMIT ?`, TableName), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dates []datekey.Key
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan recent date: %w", err)
		}
		dates = append(dates, datekey.Key(d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent dates: %w", err)
	}
	return dates, nil
}

// KnownDates returns every stored date in ascending order.
func (s *Store) KnownDates(ctx context.Context) ([]datekey.Key, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT data_date FROM %s ORDER BY data_date ASC`, TableName))
	if err != nil {
		return nil, fmt.Errorf("query known dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dates []datekey.Key
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan known date: %w", err)
		}
		dates = append(dates, datekey.Key(d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate known dates: %w", err)
	}
	return dates, nil
}

// LastFetchedAt returns the fetched_at value of the most recent merge, or
// the empty string when no rows exist.
func (s *Store) LastFetchedAt(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var last sql.NullString
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT MAX(fetched_at) FROM %s`, TableName)).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("query last fetched_at: %w", err)
	}
	if !last.Valid {
		return "", nil
	}
	return last.String, nil
}

// GetRecord loads the stored row for date, or nil when absent.
func (s *Store) GetRecord(ctx context.Context, date datekey.Key) (*record.HealthRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cols := record.Columns
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE data_date = ?`, strings.Join(cols, ", "), TableName),
		date.String())

	raw := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}

	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get record for %s: %w", date, err)
	}

	values := make(map[string]string, len(cols))
	for i, c := range cols {
		if raw[i].Valid {
			values[c] = raw[i].String
		}
	}
	return record.FromMap(values), nil
}
