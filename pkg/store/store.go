package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/OpenMined/syft-rds/pkg/datasite"
	"github.com/OpenMined/syft-rds/pkg/errdefs"
	"github.com/OpenMined/syft-rds/pkg/log"
	"github.com/OpenMined/syft-rds/pkg/types"
)

// SortOrder selects list ordering direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Query parameterizes GetAll. Filters is an equality map; unknown keys
// yield an empty result, not an error. A zero Limit means no limit; an
// empty OrderBy sorts by created_at descending.
type Query struct {
	Limit     int
	Offset    int
	OrderBy   string
	SortOrder SortOrder
	Filters   map[string]any
}

// Record is the store's view of an entity.
type Record interface {
	GetUID() uuid.UUID
	Touch(time.Time)
	Fields() map[string]any
}

// Store persists one entity kind, one YAML file per record.
type Store[T Record] struct {
	dir    string
	kind   string
	schema types.Schema
	newFn  func() T
	locks  *lockMap
	log    zerolog.Logger
}

// New opens (creating if needed) the store directory for one kind.
// newFn produces an empty record for decoding.
func New[T Record](dir, kind string, schema types.Schema, newFn func() T) (*Store[T], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}
	return &Store[T]{
		dir:    dir,
		kind:   kind,
		schema: schema,
		newFn:  newFn,
		locks:  newLockMap(),
		log:    log.WithComponent("store." + kind),
	}, nil
}

// Dir returns the backing directory.
func (s *Store[T]) Dir() string { return s.dir }

func (s *Store[T]) path(uid uuid.UUID) string {
	return filepath.Join(s.dir, uid.String()+".yaml")
}

// Create persists a new record, failing with ErrAlreadyExists on a uid
// collision.
func (s *Store[T]) Create(record T) (T, error) {
	var zero T
	path := s.path(record.GetUID())

	unlock := s.locks.lock(path)
	defer unlock()

	if _, err := os.Stat(path); err == nil {
		return zero, fmt.Errorf("%s %s: %w", s.kind, record.GetUID(), errdefs.ErrAlreadyExists)
	}
	if err := s.write(path, record); err != nil {
		return zero, err
	}
	s.log.Debug().Str("uid", record.GetUID().String()).Msg("record created")
	return record, nil
}

// GetByUID loads one record, failing with ErrNotFound when missing.
func (s *Store[T]) GetByUID(uid uuid.UUID) (T, error) {
	return s.load(s.path(uid))
}

// Update applies a mutation to the record under its file lock. The
// apply callback receives the current record and returns the new one;
// uid and kind mismatches are the callback's to detect (ApplyUpdate on
// the entity does this).
func (s *Store[T]) Update(uid uuid.UUID, apply func(current T) (T, error)) (T, error) {
	var zero T
	path := s.path(uid)

	unlock := s.locks.lock(path)
	defer unlock()

	current, err := s.load(path)
	if err != nil {
		return zero, err
	}
	next, err := apply(current)
	if err != nil {
		return zero, err
	}
	if next.GetUID() != uid {
		return zero, fmt.Errorf("update changes uid of %s %s: %w", s.kind, uid, errdefs.ErrInvalidUpdate)
	}
	next.Touch(time.Now())
	if err := s.write(path, next); err != nil {
		return zero, err
	}
	return next, nil
}

// Delete removes a record, reporting whether it existed.
func (s *Store[T]) Delete(uid uuid.UUID) (bool, error) {
	path := s.path(uid)

	unlock := s.locks.lock(path)
	defer unlock()

	err := os.Remove(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete %s %s: %w", s.kind, uid, err)
	}
	return true, nil
}

// List returns all records, newest first.
func (s *Store[T]) List() ([]T, error) {
	return s.GetAll(Query{})
}

// GetAll returns records matching the query. Filter values are coerced
// against the schema first; values that cannot match simply produce
// zero results.
func (s *Store[T]) GetAll(q Query) ([]T, error) {
	records, err := s.loadAll()
	if err != nil {
		return nil, err
	}

	filters := s.CoerceFieldTypes(q.Filters)
	matched := records[:0]
	for _, r := range records {
		if matchesFilters(r.Fields(), filters) {
			matched = append(matched, r)
		}
	}

	orderBy := q.OrderBy
	order := q.SortOrder
	if orderBy == "" {
		orderBy = "created_at"
		if order == "" {
			order = SortDesc
		}
	}
	if order == "" {
		order = SortAsc
	}
	sort.SliceStable(matched, func(i, j int) bool {
		vi := matched[i].Fields()[orderBy]
		vj := matched[j].Fields()[orderBy]
		// Descending flips the operands, not the result: negating would
		// report equal keys as ordered both ways.
		if order == SortDesc {
			return compareValues(vj, vi)
		}
		return compareValues(vi, vj)
	})

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []T{}, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

// TextSearch returns records whose listed string fields contain query,
// case-insensitively.
func (s *Store[T]) TextSearch(query string, fields []string) ([]T, error) {
	records, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var out []T
	for _, r := range records {
		values := r.Fields()
		for _, f := range fields {
			sv, ok := values[f].(string)
			if !ok {
				continue
			}
			if strings.Contains(strings.ToLower(sv), needle) {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

// CoerceFieldTypes coerces raw filter values against the kind's schema.
// Failed coercions and unknown fields pass the original value through;
// the store is schemaless on read.
func (s *Store[T]) CoerceFieldTypes(filters map[string]any) map[string]any {
	if len(filters) == 0 {
		return nil
	}
	out := make(map[string]any, len(filters))
	for name, raw := range filters {
		ft, ok := s.schema[name]
		if !ok {
			out[name] = raw
			continue
		}
		coerced, ok := ft.Coerce(raw)
		if !ok {
			out[name] = raw
			continue
		}
		out[name] = coerced
	}
	return out
}

func (s *Store[T]) loadAll() ([]T, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read store directory: %w", err)
	}
	records := make([]T, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		r, err := s.load(filepath.Join(s.dir, e.Name()))
		if err != nil {
			// Half-synced or foreign files are skipped, not fatal.
			s.log.Warn().Err(err).Str("file", e.Name()).Msg("skipping unreadable record")
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *Store[T]) load(path string) (T, error) {
	record := s.newFn()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return record, fmt.Errorf("no %s record at %s: %w", s.kind, filepath.Base(path), errdefs.ErrNotFound)
	}
	if err != nil {
		return record, fmt.Errorf("failed to read record: %w", err)
	}
	if err := yaml.Unmarshal(data, record); err != nil {
		return record, fmt.Errorf("failed to parse record %s: %w", filepath.Base(path), err)
	}
	return record, nil
}

func (s *Store[T]) write(path string, record T) error {
	data, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", s.kind, err)
	}
	if err := datasite.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s record: %w", s.kind, err)
	}
	return nil
}
