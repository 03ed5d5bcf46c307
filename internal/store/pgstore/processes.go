package pgstore

import (
	"context"
	"fmt"
	"strings"

	"empires-server/internal/process"
	apperrors "empires-server/internal/shared/errors"

	"github.com/lib/pq"
)

var buildHandlers = []string{process.HandlerConstruction, process.HandlerShip}

func (tx *Tx) CreateProcess(ctx context.Context, p *process.Process) error {
	err := tx.exec.QueryRowContext(ctx, `
		INSERT INTO processes (start_tick, end_tick, handler_id, data)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		p.StartTick, p.EndTick, p.HandlerID, string(p.Data)).Scan(&p.ID)
	if err != nil {
		return mapError("create process", err)
	}
	tx.logger.Debug("Scheduled process",
		"operation", "create_process",
		"process_id", p.ID,
		"handler_id", p.HandlerID,
		"end_tick", p.EndTick)
	return nil
}

func scanProcess(row interface{ Scan(...any) error }) (process.Process, error) {
	var p process.Process
	var data []byte
	err := row.Scan(&p.ID, &p.StartTick, &p.EndTick, &p.HandlerID, &data)
	p.Data = data
	return p, err
}

func (tx *Tx) GetProcess(ctx context.Context, id int64) (*process.Process, error) {
	p, err := scanProcess(tx.exec.QueryRowContext(ctx,
		`SELECT id, start_tick, end_tick, handler_id, data FROM processes WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("get process", err)
	}
	return &p, nil
}

func (tx *Tx) ListProcesses(ctx context.Context, filter process.Filter) ([]process.Process, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.DueBy > 0 {
		where = append(where, "end_tick <= "+arg(filter.DueBy))
	}
	if filter.HandlerID != "" {
		where = append(where, "handler_id = "+arg(filter.HandlerID))
	}
	if filter.CelestialID != 0 {
		where = append(where, "handler_id = ANY("+arg(pq.Array(buildHandlers))+")")
		where = append(where, "(data->>'celestial_id')::bigint = "+arg(filter.CelestialID))
	}

	query := `SELECT id, start_tick, end_tick, handler_id, data FROM processes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY end_tick, id"

	rows, err := tx.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("list processes", err)
	}
	defer tx.closeRows(rows)

	var out []process.Process
	for rows.Next() {
		p, err := scanProcess(rows)
		if err != nil {
			return nil, mapError("scan process", err)
		}
		out = append(out, p)
	}
	return out, mapError("iterate processes", rows.Err())
}

// DeleteProcess is the claim step of resolution: only the transaction whose delete
// removed the row goes on to run the handler.
func (tx *Tx) DeleteProcess(ctx context.Context, id int64) (bool, error) {
	res, err := tx.exec.ExecContext(ctx, `DELETE FROM processes WHERE id = $1`, id)
	if err != nil {
		return false, mapError("delete process", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapError("delete process", err)
	}
	return n > 0, nil
}

func (tx *Tx) ReservedCapacity(ctx context.Context, celestialID, excludeProcessID int64) (int, error) {
	var reserved int
	err := tx.exec.QueryRowContext(ctx, `
		SELECT COALESCE(SUM((data->>'size')::int), 0)
		FROM processes
		WHERE handler_id = $1
		  AND (data->>'celestial_id')::bigint = $2
		  AND id <> $3`,
		process.HandlerConstruction, celestialID, excludeProcessID).Scan(&reserved)
	return reserved, mapError("reserved capacity", err)
}

func (tx *Tx) RecordFailure(ctx context.Context, f *process.Failure) error {
	data := f.Data
	if len(data) == 0 {
		data = []byte("null")
	}
	err := tx.exec.QueryRowContext(ctx, `
		INSERT INTO process_failures (process_id, handler_id, tick, reason, message, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, recorded_at`,
		f.ProcessID, f.HandlerID, f.Tick, string(f.Reason), f.Message, string(data)).Scan(&f.ID, &f.RecordedAt)
	return mapError("record failure", err)
}

func (tx *Tx) ListFailures(ctx context.Context, limit int) ([]process.Failure, error) {
	query := `
		SELECT id, process_id, handler_id, tick, reason, message, data, recorded_at
		FROM process_failures
		ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := tx.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("list failures", err)
	}
	defer tx.closeRows(rows)

	var out []process.Failure
	for rows.Next() {
		var f process.Failure
		var reason string
		var data []byte
		if err := rows.Scan(&f.ID, &f.ProcessID, &f.HandlerID, &f.Tick, &reason, &f.Message, &data, &f.RecordedAt); err != nil {
			return nil, mapError("scan failure", err)
		}
		f.Reason = apperrors.Reason(reason)
		f.Data = data
		out = append(out, f)
	}
	return out, mapError("iterate failures", rows.Err())
}
