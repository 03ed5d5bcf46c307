// Package memstore is an in-process Store. Transactions are serialized and work on a
// copy of the state that replaces the committed state only when the transaction succeeds.
package memstore

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"
	"time"

	"empires-server/internal/process"
	"empires-server/internal/store"
	"empires-server/internal/world"
)

type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

type state struct {
	world *world.World

	empires       map[int64]world.Empire
	blueprints    map[int64]world.Blueprint
	sectors       map[int64]world.Sector
	celestials    map[int64]world.Celestial
	constructions map[int64]world.Construction
	movables      map[int64]world.Movable
	ships         map[int64]world.Ship
	processes     map[int64]process.Process
	failures      []process.Failure

	nextID int64
}

func New() *Store {
	return &Store{
		state: &state{
			empires:       map[int64]world.Empire{},
			blueprints:    map[int64]world.Blueprint{},
			sectors:       map[int64]world.Sector{},
			celestials:    map[int64]world.Celestial{},
			constructions: map[int64]world.Construction{},
			movables:      map[int64]world.Movable{},
			ships:         map[int64]world.Ship{},
			processes:     map[int64]process.Process{},
		},
		now: time.Now,
	}
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{st: s.state.clone(), now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.st
	return nil
}

func (st *state) clone() *state {
	c := &state{
		empires:       cloneMap(st.empires),
		blueprints:    cloneMap(st.blueprints),
		sectors:       cloneMap(st.sectors),
		celestials:    cloneMap(st.celestials),
		constructions: cloneMap(st.constructions),
		movables:      cloneMap(st.movables),
		ships:         cloneMap(st.ships),
		processes:     cloneMap(st.processes),
		failures:      slices.Clone(st.failures),
		nextID:        st.nextID,
	}
	if st.world != nil {
		w := *st.world
		c.world = &w
	}
	return c
}

// cloneMap copies the map; values are replaced wholesale on update, never mutated in place.
func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedValues[V any](m map[int64]V, keep func(V) bool) []V {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	out := make([]V, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

// Tx is a transaction over a private copy of the state.
type Tx struct {
	st  *state
	now func() time.Time
}

func (tx *Tx) id() int64 {
	tx.st.nextID++
	return tx.st.nextID
}

func (tx *Tx) GetWorld(ctx context.Context) (*world.World, error) {
	if tx.st.world == nil {
		return nil, store.ErrNotFound
	}
	w := *tx.st.world
	return &w, nil
}

func (tx *Tx) LockWorld(ctx context.Context) (*world.World, error) {
	return tx.GetWorld(ctx)
}

func (tx *Tx) ShareWorld(ctx context.Context) (*world.World, error) {
	return tx.GetWorld(ctx)
}

func (tx *Tx) CreateWorld(ctx context.Context, w world.World) error {
	if tx.st.world != nil {
		return store.ErrConflict
	}
	tx.st.world = &w
	return nil
}

func (tx *Tx) UpdateWorld(ctx context.Context, w world.World) error {
	if tx.st.world == nil {
		return store.ErrNotFound
	}
	tx.st.world = &w
	return nil
}

func (tx *Tx) CreateEmpire(ctx context.Context, e *world.Empire) error {
	for _, existing := range tx.st.empires {
		if existing.Name == e.Name {
			return store.ErrConflict
		}
	}
	e.ID = tx.id()
	e.CreatedAt = tx.now().UTC()
	tx.st.empires[e.ID] = *e
	return nil
}

func (tx *Tx) GetEmpire(ctx context.Context, id int64) (*world.Empire, error) {
	e, ok := tx.st.empires[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (tx *Tx) ListEmpires(ctx context.Context) ([]world.Empire, error) {
	return sortedValues(tx.st.empires, nil), nil
}

func (tx *Tx) CreateBlueprint(ctx context.Context, b *world.Blueprint) error {
	if _, ok := tx.st.empires[b.EmpireID]; !ok {
		return store.ErrNotFound
	}
	b.ID = tx.id()
	tx.st.blueprints[b.ID] = *b
	return nil
}

func (tx *Tx) GetBlueprint(ctx context.Context, id int64) (*world.Blueprint, error) {
	b, ok := tx.st.blueprints[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (tx *Tx) ListBlueprints(ctx context.Context, empireID int64) ([]world.Blueprint, error) {
	return sortedValues(tx.st.blueprints, func(b world.Blueprint) bool { return b.EmpireID == empireID }), nil
}

func (tx *Tx) CreateSector(ctx context.Context, s *world.Sector) error {
	for _, existing := range tx.st.sectors {
		if existing.Position == s.Position {
			return store.ErrConflict
		}
	}
	s.ID = tx.id()
	tx.st.sectors[s.ID] = *s
	return nil
}

func (tx *Tx) GetSector(ctx context.Context, id int64) (*world.Sector, error) {
	s, ok := tx.st.sectors[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (tx *Tx) ListSectors(ctx context.Context) ([]world.Sector, error) {
	return sortedValues(tx.st.sectors, nil), nil
}

func (tx *Tx) CountSectors(ctx context.Context) (int, error) {
	return len(tx.st.sectors), nil
}

func (tx *Tx) ListHabitatedSectors(ctx context.Context, empireID int64) ([]world.Sector, error) {
	habitated := map[int64]bool{}
	for _, c := range tx.st.celestials {
		if c.HabitatedByEmpire(empireID) {
			habitated[c.SectorID] = true
		}
	}
	return sortedValues(tx.st.sectors, func(s world.Sector) bool { return habitated[s.ID] }), nil
}

func (tx *Tx) CreateCelestial(ctx context.Context, c *world.Celestial) error {
	if _, ok := tx.st.sectors[c.SectorID]; !ok {
		return store.ErrNotFound
	}
	c.ID = tx.id()
	c.Features = slices.Clone(c.Features)
	tx.st.celestials[c.ID] = *c
	return nil
}

func (tx *Tx) GetCelestial(ctx context.Context, id int64) (*world.Celestial, error) {
	c, ok := tx.st.celestials[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c.Features = slices.Clone(c.Features)
	return &c, nil
}

// LockCelestial needs no extra locking: transactions are already serialized.
func (tx *Tx) LockCelestial(ctx context.Context, id int64) (*world.Celestial, error) {
	return tx.GetCelestial(ctx, id)
}

func (tx *Tx) ListCelestials(ctx context.Context, sectorID int64) ([]world.Celestial, error) {
	return sortedValues(tx.st.celestials, func(c world.Celestial) bool { return c.SectorID == sectorID }), nil
}

func (tx *Tx) UpdateCelestial(ctx context.Context, c world.Celestial) error {
	if _, ok := tx.st.celestials[c.ID]; !ok {
		return store.ErrNotFound
	}
	c.Features = slices.Clone(c.Features)
	tx.st.celestials[c.ID] = c
	return nil
}

func (tx *Tx) CreateConstruction(ctx context.Context, c *world.Construction) error {
	b, ok := tx.st.blueprints[c.BlueprintID]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := tx.st.celestials[c.CelestialID]; !ok {
		return store.ErrNotFound
	}
	c.ID = tx.id()
	c.BaseID, c.Size, c.EmpireID = b.BaseID, b.Data.Size, b.EmpireID
	tx.st.constructions[c.ID] = *c
	return nil
}

func (tx *Tx) GetConstruction(ctx context.Context, id int64) (*world.Construction, error) {
	c, ok := tx.st.constructions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (tx *Tx) ListConstructions(ctx context.Context, celestialID int64) ([]world.Construction, error) {
	return sortedValues(tx.st.constructions, func(c world.Construction) bool { return c.CelestialID == celestialID }), nil
}

func (tx *Tx) DeleteConstruction(ctx context.Context, id int64) error {
	if _, ok := tx.st.constructions[id]; !ok {
		return store.ErrNotFound
	}
	delete(tx.st.constructions, id)
	return nil
}

func (tx *Tx) CreateMovable(ctx context.Context, m *world.Movable) error {
	m.ID = tx.id()
	tx.st.movables[m.ID] = copyMovable(*m)
	return nil
}

func (tx *Tx) GetMovable(ctx context.Context, id int64) (*world.Movable, error) {
	m, ok := tx.st.movables[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	m = copyMovable(m)
	return &m, nil
}

func (tx *Tx) LockMovable(ctx context.Context, id int64) (*world.Movable, error) {
	return tx.GetMovable(ctx, id)
}

func (tx *Tx) UpdateMovable(ctx context.Context, m world.Movable) error {
	if _, ok := tx.st.movables[m.ID]; !ok {
		return store.ErrNotFound
	}
	tx.st.movables[m.ID] = copyMovable(m)
	return nil
}

func (tx *Tx) DeleteMovable(ctx context.Context, id int64) error {
	if _, ok := tx.st.movables[id]; !ok {
		return store.ErrNotFound
	}
	for _, s := range tx.st.ships {
		if s.MovableID == id {
			return store.ErrConflict
		}
	}
	delete(tx.st.movables, id)
	return nil
}

func (tx *Tx) LockMovingMovables(ctx context.Context) ([]world.Movable, error) {
	return copyMovables(sortedValues(tx.st.movables, world.Movable.Moving)), nil
}

func (tx *Tx) ListEmpireMovables(ctx context.Context, empireID int64) ([]world.Movable, error) {
	owned := map[int64]bool{}
	for _, s := range tx.st.ships {
		if s.EmpireID == empireID {
			owned[s.MovableID] = true
		}
	}
	return copyMovables(sortedValues(tx.st.movables, func(m world.Movable) bool { return owned[m.ID] })), nil
}

func copyMovable(m world.Movable) world.Movable {
	if m.Destination != nil {
		d := *m.Destination
		m.Destination = &d
	}
	if m.ProcessID != nil {
		p := *m.ProcessID
		m.ProcessID = &p
	}
	return m
}

func copyMovables(ms []world.Movable) []world.Movable {
	for i := range ms {
		ms[i] = copyMovable(ms[i])
	}
	return ms
}

func (tx *Tx) CreateShip(ctx context.Context, s *world.Ship) error {
	b, ok := tx.st.blueprints[s.BlueprintID]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := tx.st.movables[s.MovableID]; !ok {
		return store.ErrNotFound
	}
	s.ID = tx.id()
	s.EmpireID, s.BaseID, s.Name = b.EmpireID, b.BaseID, b.Data.Name
	tx.st.ships[s.ID] = *s
	return nil
}

func (tx *Tx) GetShip(ctx context.Context, id int64) (*world.Ship, error) {
	s, ok := tx.st.ships[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (tx *Tx) ListShips(ctx context.Context, movableID int64) ([]world.Ship, error) {
	return sortedValues(tx.st.ships, func(s world.Ship) bool { return s.MovableID == movableID }), nil
}

func (tx *Tx) DeleteShip(ctx context.Context, id int64) error {
	if _, ok := tx.st.ships[id]; !ok {
		return store.ErrNotFound
	}
	delete(tx.st.ships, id)
	return nil
}

func (tx *Tx) CreateProcess(ctx context.Context, p *process.Process) error {
	p.ID = tx.id()
	p.Data = slices.Clone(p.Data)
	tx.st.processes[p.ID] = *p
	return nil
}

func (tx *Tx) GetProcess(ctx context.Context, id int64) (*process.Process, error) {
	p, ok := tx.st.processes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Data = slices.Clone(p.Data)
	return &p, nil
}

func (tx *Tx) ListProcesses(ctx context.Context, filter process.Filter) ([]process.Process, error) {
	var out []process.Process
	for _, p := range tx.st.processes {
		if filter.DueBy > 0 && p.EndTick > filter.DueBy {
			continue
		}
		if filter.HandlerID != "" && p.HandlerID != filter.HandlerID {
			continue
		}
		if filter.CelestialID != 0 && buildCelestial(p) != filter.CelestialID {
			continue
		}
		p.Data = slices.Clone(p.Data)
		out = append(out, p)
	}
	process.Sort(out)
	return out, nil
}

func (tx *Tx) DeleteProcess(ctx context.Context, id int64) (bool, error) {
	if _, ok := tx.st.processes[id]; !ok {
		return false, nil
	}
	delete(tx.st.processes, id)
	return true, nil
}

func (tx *Tx) ReservedCapacity(ctx context.Context, celestialID, excludeProcessID int64) (int, error) {
	reserved := 0
	for id, p := range tx.st.processes {
		if id == excludeProcessID || p.HandlerID != process.HandlerConstruction {
			continue
		}
		var payload process.BuildPayload
		if err := json.Unmarshal(p.Data, &payload); err != nil {
			continue
		}
		if payload.CelestialID == celestialID {
			reserved += payload.Size
		}
	}
	return reserved, nil
}

// buildCelestial returns the celestial a build process targets, or zero.
func buildCelestial(p process.Process) int64 {
	if p.HandlerID != process.HandlerConstruction && p.HandlerID != process.HandlerShip {
		return 0
	}
	var payload process.BuildPayload
	if err := json.Unmarshal(p.Data, &payload); err != nil {
		return 0
	}
	return payload.CelestialID
}

func (tx *Tx) RecordFailure(ctx context.Context, f *process.Failure) error {
	f.ID = tx.id()
	f.RecordedAt = tx.now().UTC()
	tx.st.failures = append(tx.st.failures, *f)
	return nil
}

func (tx *Tx) ListFailures(ctx context.Context, limit int) ([]process.Failure, error) {
	out := slices.Clone(tx.st.failures)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
