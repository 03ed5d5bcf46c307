// Package pgstore persists the simulation in PostgreSQL.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"empires-server/internal/hexgrid"
	"empires-server/internal/shared/database"
	"empires-server/internal/store"
	"empires-server/internal/world"

	"github.com/lib/pq"
)

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*Tx)(nil)
)

type Store struct {
	db     *database.DB
	logger *slog.Logger
}

func New(db *database.DB, logger *slog.Logger) *Store {
	logger.Debug("Initializing postgres world store")
	return &Store{
		db:     db,
		logger: logger.With("component", "pgstore"),
	}
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.InTx(ctx, func(tx *database.Tx) error {
		return fn(&Tx{exec: tx, logger: s.logger})
	})
}

type Tx struct {
	exec   database.Executor
	logger *slog.Logger
}

// mapError translates driver errors into store sentinels.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return fmt.Errorf("%s: %w", op, store.ErrConflict)
		case "foreign_key_violation":
			if strings.Contains(pqErr.Detail, "is still referenced") {
				return fmt.Errorf("%s: %w", op, store.ErrConflict)
			}
			return fmt.Errorf("%s: %w", op, store.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func expectOne(op string, res sql.Result, err error) error {
	if err != nil {
		return mapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullableCell(q, r sql.NullInt64) *hexgrid.Cell {
	if !q.Valid || !r.Valid {
		return nil
	}
	return &hexgrid.Cell{Q: int(q.Int64), R: int(r.Int64)}
}

func cellArgs(c *hexgrid.Cell) (any, any) {
	if c == nil {
		return nil, nil
	}
	return c.Q, c.R
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func idArg(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// World

func (tx *Tx) scanWorld(ctx context.Context, query string) (*world.World, error) {
	var w world.World
	var seconds int64
	err := tx.exec.QueryRowContext(ctx, query).Scan(&w.Now, &w.LastTickTimestamp, &seconds)
	if err != nil {
		return nil, mapError("get world", err)
	}
	w.TickDuration = time.Duration(seconds) * time.Second
	return &w, nil
}

func (tx *Tx) GetWorld(ctx context.Context) (*world.World, error) {
	return tx.scanWorld(ctx, `SELECT now, last_tick_timestamp, tick_duration_seconds FROM world WHERE id = 1`)
}

func (tx *Tx) LockWorld(ctx context.Context) (*world.World, error) {
	return tx.scanWorld(ctx, `SELECT now, last_tick_timestamp, tick_duration_seconds FROM world WHERE id = 1 FOR UPDATE`)
}

func (tx *Tx) ShareWorld(ctx context.Context) (*world.World, error) {
	return tx.scanWorld(ctx, `SELECT now, last_tick_timestamp, tick_duration_seconds FROM world WHERE id = 1 FOR SHARE`)
}

func (tx *Tx) CreateWorld(ctx context.Context, w world.World) error {
	_, err := tx.exec.ExecContext(ctx,
		`INSERT INTO world (id, now, last_tick_timestamp, tick_duration_seconds) VALUES (1, $1, $2, $3)`,
		w.Now, w.LastTickTimestamp, int64(w.TickDuration/time.Second))
	return mapError("create world", err)
}

func (tx *Tx) UpdateWorld(ctx context.Context, w world.World) error {
	res, err := tx.exec.ExecContext(ctx,
		`UPDATE world SET now = $1, last_tick_timestamp = $2 WHERE id = 1 AND now <= $1`,
		w.Now, w.LastTickTimestamp)
	return expectOne("update world", res, err)
}

// Empires and blueprints

func (tx *Tx) CreateEmpire(ctx context.Context, e *world.Empire) error {
	logger := tx.logger.With("operation", "create_empire", "name", e.Name)
	q, r := cellArgs(e.Origin)
	err := tx.exec.QueryRowContext(ctx, `
		INSERT INTO empires (name, origin_q, origin_r, color_hue)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.Name, q, r, e.ColorHue).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		logger.Debug("Failed to insert empire", "error", err)
		return mapError("create empire", err)
	}
	return nil
}

const empireColumns = `id, name, origin_q, origin_r, color_hue, created_at`

func scanEmpire(row interface{ Scan(...any) error }) (world.Empire, error) {
	var e world.Empire
	var q, r sql.NullInt64
	err := row.Scan(&e.ID, &e.Name, &q, &r, &e.ColorHue, &e.CreatedAt)
	e.Origin = nullableCell(q, r)
	return e, err
}

func (tx *Tx) GetEmpire(ctx context.Context, id int64) (*world.Empire, error) {
	e, err := scanEmpire(tx.exec.QueryRowContext(ctx, `SELECT `+empireColumns+` FROM empires WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("get empire", err)
	}
	return &e, nil
}

func (tx *Tx) ListEmpires(ctx context.Context) ([]world.Empire, error) {
	rows, err := tx.exec.QueryContext(ctx, `SELECT `+empireColumns+` FROM empires ORDER BY id`)
	if err != nil {
		return nil, mapError("list empires", err)
	}
	defer tx.closeRows(rows)

	var out []world.Empire
	for rows.Next() {
		e, err := scanEmpire(rows)
		if err != nil {
			return nil, mapError("scan empire", err)
		}
		out = append(out, e)
	}
	return out, mapError("iterate empires", rows.Err())
}

func (tx *Tx) CreateBlueprint(ctx context.Context, b *world.Blueprint) error {
	data, err := json.Marshal(b.Data)
	if err != nil {
		return fmt.Errorf("marshal blueprint data: %w", err)
	}
	err = tx.exec.QueryRowContext(ctx,
		`INSERT INTO blueprints (base_id, empire_id, data) VALUES ($1, $2, $3) RETURNING id`,
		b.BaseID, b.EmpireID, string(data)).Scan(&b.ID)
	return mapError("create blueprint", err)
}

func scanBlueprint(row interface{ Scan(...any) error }) (world.Blueprint, error) {
	var b world.Blueprint
	var data []byte
	if err := row.Scan(&b.ID, &b.BaseID, &b.EmpireID, &data); err != nil {
		return b, err
	}
	if err := json.Unmarshal(data, &b.Data); err != nil {
		return b, fmt.Errorf("decode blueprint %d data: %w", b.ID, err)
	}
	return b, nil
}

func (tx *Tx) GetBlueprint(ctx context.Context, id int64) (*world.Blueprint, error) {
	b, err := scanBlueprint(tx.exec.QueryRowContext(ctx,
		`SELECT id, base_id, empire_id, data FROM blueprints WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("get blueprint", err)
	}
	return &b, nil
}

func (tx *Tx) ListBlueprints(ctx context.Context, empireID int64) ([]world.Blueprint, error) {
	rows, err := tx.exec.QueryContext(ctx,
		`SELECT id, base_id, empire_id, data FROM blueprints WHERE empire_id = $1 ORDER BY id`, empireID)
	if err != nil {
		return nil, mapError("list blueprints", err)
	}
	defer tx.closeRows(rows)

	var out []world.Blueprint
	for rows.Next() {
		b, err := scanBlueprint(rows)
		if err != nil {
			return nil, mapError("scan blueprint", err)
		}
		out = append(out, b)
	}
	return out, mapError("iterate blueprints", rows.Err())
}

// Sectors, celestials and constructions

func (tx *Tx) CreateSector(ctx context.Context, s *world.Sector) error {
	err := tx.exec.QueryRowContext(ctx,
		`INSERT INTO sectors (q, r, name) VALUES ($1, $2, $3) RETURNING id`,
		s.Position.Q, s.Position.R, s.Name).Scan(&s.ID)
	return mapError("create sector", err)
}

func scanSector(row interface{ Scan(...any) error }) (world.Sector, error) {
	var s world.Sector
	err := row.Scan(&s.ID, &s.Position.Q, &s.Position.R, &s.Name)
	return s, err
}

func (tx *Tx) GetSector(ctx context.Context, id int64) (*world.Sector, error) {
	s, err := scanSector(tx.exec.QueryRowContext(ctx, `SELECT id, q, r, name FROM sectors WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("get sector", err)
	}
	return &s, nil
}

func (tx *Tx) listSectors(ctx context.Context, op, query string, args ...any) ([]world.Sector, error) {
	rows, err := tx.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer tx.closeRows(rows)

	var out []world.Sector
	for rows.Next() {
		s, err := scanSector(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		out = append(out, s)
	}
	return out, mapError(op, rows.Err())
}

func (tx *Tx) ListSectors(ctx context.Context) ([]world.Sector, error) {
	return tx.listSectors(ctx, "list sectors", `SELECT id, q, r, name FROM sectors ORDER BY id`)
}

func (tx *Tx) CountSectors(ctx context.Context) (int, error) {
	var n int
	err := tx.exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM sectors`).Scan(&n)
	return n, mapError("count sectors", err)
}

func (tx *Tx) ListHabitatedSectors(ctx context.Context, empireID int64) ([]world.Sector, error) {
	return tx.listSectors(ctx, "list habitated sectors", `
		SELECT s.id, s.q, s.r, s.name
		FROM sectors s
		WHERE EXISTS (SELECT 1 FROM celestials c WHERE c.sector_id = s.id AND c.habitated_by = $1)
		ORDER BY s.id`, empireID)
}

const celestialColumns = `id, sector_id, position, features, max_size, habitated_by`

func scanCelestial(row interface{ Scan(...any) error }) (world.Celestial, error) {
	var c world.Celestial
	var features []byte
	var habitatedBy sql.NullInt64
	if err := row.Scan(&c.ID, &c.SectorID, &c.Position, &features, &c.MaxSize, &habitatedBy); err != nil {
		return c, err
	}
	c.HabitatedBy = nullableID(habitatedBy)
	if err := json.Unmarshal(features, &c.Features); err != nil {
		return c, fmt.Errorf("decode celestial %d features: %w", c.ID, err)
	}
	return c, nil
}

func (tx *Tx) CreateCelestial(ctx context.Context, c *world.Celestial) error {
	features, err := json.Marshal(nonNil(c.Features))
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	err = tx.exec.QueryRowContext(ctx, `
		INSERT INTO celestials (sector_id, position, features, max_size, habitated_by)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		c.SectorID, c.Position, string(features), c.MaxSize, idArg(c.HabitatedBy)).Scan(&c.ID)
	return mapError("create celestial", err)
}

func (tx *Tx) GetCelestial(ctx context.Context, id int64) (*world.Celestial, error) {
	c, err := scanCelestial(tx.exec.QueryRowContext(ctx, `SELECT `+celestialColumns+` FROM celestials WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("get celestial", err)
	}
	return &c, nil
}

func (tx *Tx) LockCelestial(ctx context.Context, id int64) (*world.Celestial, error) {
	c, err := scanCelestial(tx.exec.QueryRowContext(ctx, `SELECT `+celestialColumns+` FROM celestials WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError("lock celestial", err)
	}
	return &c, nil
}

func (tx *Tx) ListCelestials(ctx context.Context, sectorID int64) ([]world.Celestial, error) {
	rows, err := tx.exec.QueryContext(ctx, `SELECT `+celestialColumns+` FROM celestials WHERE sector_id = $1 ORDER BY id`, sectorID)
	if err != nil {
		return nil, mapError("list celestials", err)
	}
	defer tx.closeRows(rows)

	var out []world.Celestial
	for rows.Next() {
		c, err := scanCelestial(rows)
		if err != nil {
			return nil, mapError("scan celestial", err)
		}
		out = append(out, c)
	}
	return out, mapError("iterate celestials", rows.Err())
}

func (tx *Tx) UpdateCelestial(ctx context.Context, c world.Celestial) error {
	features, err := json.Marshal(nonNil(c.Features))
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	res, err := tx.exec.ExecContext(ctx, `
		UPDATE celestials SET position = $2, features = $3, max_size = $4, habitated_by = $5
		WHERE id = $1`,
		c.ID, c.Position, string(features), c.MaxSize, idArg(c.HabitatedBy))
	return expectOne("update celestial", res, err)
}

const constructionSelect = `
	SELECT c.id, c.blueprint_id, c.celestial_id, b.base_id, COALESCE((b.data->>'size')::int, 0), b.empire_id
	FROM constructions c
	JOIN blueprints b ON b.id = c.blueprint_id`

func scanConstruction(row interface{ Scan(...any) error }) (world.Construction, error) {
	var c world.Construction
	err := row.Scan(&c.ID, &c.BlueprintID, &c.CelestialID, &c.BaseID, &c.Size, &c.EmpireID)
	return c, err
}

func (tx *Tx) CreateConstruction(ctx context.Context, c *world.Construction) error {
	err := tx.exec.QueryRowContext(ctx,
		`INSERT INTO constructions (blueprint_id, celestial_id) VALUES ($1, $2) RETURNING id`,
		c.BlueprintID, c.CelestialID).Scan(&c.ID)
	if err != nil {
		return mapError("create construction", err)
	}
	created, err := tx.GetConstruction(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = *created
	return nil
}

func (tx *Tx) GetConstruction(ctx context.Context, id int64) (*world.Construction, error) {
	c, err := scanConstruction(tx.exec.QueryRowContext(ctx, constructionSelect+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, mapError("get construction", err)
	}
	return &c, nil
}

func (tx *Tx) ListConstructions(ctx context.Context, celestialID int64) ([]world.Construction, error) {
	rows, err := tx.exec.QueryContext(ctx, constructionSelect+` WHERE c.celestial_id = $1 ORDER BY c.id`, celestialID)
	if err != nil {
		return nil, mapError("list constructions", err)
	}
	defer tx.closeRows(rows)

	var out []world.Construction
	for rows.Next() {
		c, err := scanConstruction(rows)
		if err != nil {
			return nil, mapError("scan construction", err)
		}
		out = append(out, c)
	}
	return out, mapError("iterate constructions", rows.Err())
}

func (tx *Tx) DeleteConstruction(ctx context.Context, id int64) error {
	res, err := tx.exec.ExecContext(ctx, `DELETE FROM constructions WHERE id = $1`, id)
	return expectOne("delete construction", res, err)
}

// Movables and ships

const movableColumns = `m.id, m.position_q, m.position_r, m.destination_q, m.destination_r, m.speed, m.process_id`

func scanMovable(row interface{ Scan(...any) error }) (world.Movable, error) {
	var m world.Movable
	var dq, dr, pid sql.NullInt64
	if err := row.Scan(&m.ID, &m.Position.Q, &m.Position.R, &dq, &dr, &m.Speed, &pid); err != nil {
		return m, err
	}
	m.Destination = nullableCell(dq, dr)
	m.ProcessID = nullableID(pid)
	return m, nil
}

func (tx *Tx) listMovables(ctx context.Context, op, query string, args ...any) ([]world.Movable, error) {
	rows, err := tx.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer tx.closeRows(rows)

	var out []world.Movable
	for rows.Next() {
		m, err := scanMovable(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		out = append(out, m)
	}
	return out, mapError(op, rows.Err())
}

func (tx *Tx) CreateMovable(ctx context.Context, m *world.Movable) error {
	dq, dr := cellArgs(m.Destination)
	err := tx.exec.QueryRowContext(ctx, `
		INSERT INTO movables (position_q, position_r, destination_q, destination_r, speed, process_id)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		m.Position.Q, m.Position.R, dq, dr, m.Speed, idArg(m.ProcessID)).Scan(&m.ID)
	return mapError("create movable", err)
}

func (tx *Tx) GetMovable(ctx context.Context, id int64) (*world.Movable, error) {
	m, err := scanMovable(tx.exec.QueryRowContext(ctx, `SELECT `+movableColumns+` FROM movables m WHERE m.id = $1`, id))
	if err != nil {
		return nil, mapError("get movable", err)
	}
	return &m, nil
}

func (tx *Tx) LockMovable(ctx context.Context, id int64) (*world.Movable, error) {
	m, err := scanMovable(tx.exec.QueryRowContext(ctx, `SELECT `+movableColumns+` FROM movables m WHERE m.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError("lock movable", err)
	}
	return &m, nil
}

func (tx *Tx) UpdateMovable(ctx context.Context, m world.Movable) error {
	dq, dr := cellArgs(m.Destination)
	res, err := tx.exec.ExecContext(ctx, `
		UPDATE movables
		SET position_q = $2, position_r = $3, destination_q = $4, destination_r = $5, speed = $6, process_id = $7
		WHERE id = $1`,
		m.ID, m.Position.Q, m.Position.R, dq, dr, m.Speed, idArg(m.ProcessID))
	return expectOne("update movable", res, err)
}

func (tx *Tx) DeleteMovable(ctx context.Context, id int64) error {
	res, err := tx.exec.ExecContext(ctx, `DELETE FROM movables WHERE id = $1`, id)
	return expectOne("delete movable", res, err)
}

func (tx *Tx) LockMovingMovables(ctx context.Context) ([]world.Movable, error) {
	return tx.listMovables(ctx, "lock moving movables",
		`SELECT `+movableColumns+` FROM movables m WHERE m.destination_q IS NOT NULL ORDER BY m.id FOR UPDATE`)
}

func (tx *Tx) ListEmpireMovables(ctx context.Context, empireID int64) ([]world.Movable, error) {
	return tx.listMovables(ctx, "list empire movables", `
		SELECT `+movableColumns+`
		FROM movables m
		WHERE EXISTS (
			SELECT 1 FROM ships s JOIN blueprints b ON b.id = s.blueprint_id
			WHERE s.movable_id = m.id AND b.empire_id = $1
		)
		ORDER BY m.id`, empireID)
}

const shipSelect = `
	SELECT s.id, s.blueprint_id, s.movable_id, b.empire_id, b.base_id, COALESCE(b.data->>'name', '')
	FROM ships s
	JOIN blueprints b ON b.id = s.blueprint_id`

func scanShip(row interface{ Scan(...any) error }) (world.Ship, error) {
	var s world.Ship
	err := row.Scan(&s.ID, &s.BlueprintID, &s.MovableID, &s.EmpireID, &s.BaseID, &s.Name)
	return s, err
}

func (tx *Tx) CreateShip(ctx context.Context, s *world.Ship) error {
	err := tx.exec.QueryRowContext(ctx,
		`INSERT INTO ships (blueprint_id, movable_id) VALUES ($1, $2) RETURNING id`,
		s.BlueprintID, s.MovableID).Scan(&s.ID)
	if err != nil {
		return mapError("create ship", err)
	}
	created, err := tx.GetShip(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *created
	return nil
}

func (tx *Tx) GetShip(ctx context.Context, id int64) (*world.Ship, error) {
	s, err := scanShip(tx.exec.QueryRowContext(ctx, shipSelect+` WHERE s.id = $1`, id))
	if err != nil {
		return nil, mapError("get ship", err)
	}
	return &s, nil
}

func (tx *Tx) ListShips(ctx context.Context, movableID int64) ([]world.Ship, error) {
	rows, err := tx.exec.QueryContext(ctx, shipSelect+` WHERE s.movable_id = $1 ORDER BY s.id`, movableID)
	if err != nil {
		return nil, mapError("list ships", err)
	}
	defer tx.closeRows(rows)

	var out []world.Ship
	for rows.Next() {
		s, err := scanShip(rows)
		if err != nil {
			return nil, mapError("scan ship", err)
		}
		out = append(out, s)
	}
	return out, mapError("iterate ships", rows.Err())
}

func (tx *Tx) DeleteShip(ctx context.Context, id int64) error {
	res, err := tx.exec.ExecContext(ctx, `DELETE FROM ships WHERE id = $1`, id)
	return expectOne("delete ship", res, err)
}

func (tx *Tx) closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		tx.logger.Error("Failed to close rows", "error", err)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
