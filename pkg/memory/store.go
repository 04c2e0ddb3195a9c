// Package memory persists what the assistant learns about the user between
// sessions: preferences, recently used tables and free-text facts.
package memory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	// DefaultPath is the memory file used when none is configured.
	DefaultPath = ".agent_memory.json"

	MaxRecentTables = 10
	MaxFacts        = 20

	summaryTables = 5
	summaryFacts  = 5

	noContext = "No prior context."
)

// Fact is one remembered statement.
type Fact struct {
	ID        string    `json:"id,omitempty"`
	Fact      string    `json:"fact"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is the persisted document.
type Record struct {
	Preferences  map[string]string `json:"preferences"`
	RecentTables []string          `json:"recent_tables"`
	Facts        []Fact            `json:"facts"`
}

func emptyRecord() Record {
	return Record{
		Preferences:  map[string]string{},
		RecentTables: []string{},
		Facts:        []Fact{},
	}
}

// Store is the process-wide memory. It is loaded once and every mutation
// rewrites the whole file. The mutex only guards against the HTTP server's
// goroutines interleaving.
type Store struct {
	path   string
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	record Record
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the fact timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open loads the memory file at path. A missing or corrupt file yields an
// empty record; Open never fails startup.
func Open(path string, logger *zap.Logger, opts ...Option) *Store {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		path:   path,
		logger: logger.Named("memory"),
		now:    time.Now,
		record: emptyRecord(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to read memory file, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return
	}

	var doc map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		s.logger.Warn("Memory file is corrupt, starting empty", zap.String("path", s.path), zap.Error(err))
		return
	}

	rec := emptyRecord()
	if raw, ok := doc["preferences"]; ok {
		rec.Preferences = s.decodePreferences(raw)
	}
	if raw, ok := doc["recent_tables"]; ok {
		rec.RecentTables = s.decodeRecentTables(raw)
	}
	if raw, ok := doc["facts"]; ok {
		rec.Facts = s.decodeFacts(raw)
	}
	s.record = rec
}

// Each section decodes on its own so one malformed field does not discard
// the rest of the file.

func (s *Store) decodePreferences(raw json.RawMessage) map[string]string {
	prefs := map[string]string{}
	var values map[string]any
	if err := decodeNumbers(raw, &values); err != nil {
		s.logger.Warn("Ignoring malformed preferences in memory file", zap.String("path", s.path), zap.Error(err))
		return prefs
	}
	for k, v := range values {
		switch v := v.(type) {
		case nil:
		case string:
			prefs[k] = v
		case map[string]any, []any:
			encoded, err := json.Marshal(v)
			if err != nil {
				continue
			}
			prefs[k] = string(encoded)
		default:
			prefs[k] = fmt.Sprint(v)
		}
	}
	return prefs
}

func (s *Store) decodeRecentTables(raw json.RawMessage) []string {
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil {
		s.logger.Warn("Ignoring malformed recent tables in memory file", zap.String("path", s.path), zap.Error(err))
		return []string{}
	}
	tables := make([]string, 0, MaxRecentTables)
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		table, ok := v.(string)
		table = strings.TrimSpace(table)
		if !ok || table == "" || seen[table] {
			continue
		}
		seen[table] = true
		tables = append(tables, table)
		if len(tables) == MaxRecentTables {
			break
		}
	}
	return tables
}

type storedFact struct {
	ID        string `json:"id"`
	Fact      string `json:"fact"`
	Timestamp string `json:"timestamp"`
}

func (s *Store) decodeFacts(raw json.RawMessage) []Fact {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn("Ignoring malformed facts in memory file", zap.String("path", s.path), zap.Error(err))
		return []Fact{}
	}
	facts := make([]Fact, 0, len(entries))
	for _, entry := range entries {
		var sf storedFact
		if err := json.Unmarshal(entry, &sf); err != nil || sf.Fact == "" {
			s.logger.Debug("Skipping unreadable fact", zap.ByteString("fact", entry))
			continue
		}
		facts = append(facts, Fact{ID: sf.ID, Fact: sf.Fact, Timestamp: parseTimestamp(sf.Timestamp)})
	}
	if len(facts) > MaxFacts {
		facts = facts[len(facts)-MaxFacts:]
	}
	return facts
}

// Files written by other tools carry naive local timestamps without an
// offset.
var naiveTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp returns the zero time for anything it cannot read.
func parseTimestamp(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t
	}
	for _, layout := range naiveTimestampLayouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func decodeNumbers(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// AddPreference stores key=value, replacing any previous value.
func (s *Store) AddPreference(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record
	rec.Preferences = make(map[string]string, len(s.record.Preferences)+1)
	for k, v := range s.record.Preferences {
		rec.Preferences[k] = v
	}
	rec.Preferences[key] = value
	return s.commitLocked(rec)
}

// Preference returns a stored preference.
func (s *Store) Preference(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.record.Preferences[key]
	return v, ok
}

// AddRecentTable moves table to the front of the recent list, keeping at
// most MaxRecentTables unique entries.
func (s *Store) AddRecentTable(table string) error {
	table = strings.TrimSpace(table)
	if table == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tables := make([]string, 0, MaxRecentTables)
	tables = append(tables, table)
	for _, t := range s.record.RecentTables {
		if t != table && len(tables) < MaxRecentTables {
			tables = append(tables, t)
		}
	}
	rec := s.record
	rec.RecentTables = tables
	return s.commitLocked(rec)
}

// AddFact appends a fact, evicting the oldest beyond MaxFacts.
func (s *Store) AddFact(text string) (Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fact := Fact{ID: ulid.Make().String(), Fact: text, Timestamp: s.now().UTC()}
	facts := make([]Fact, 0, len(s.record.Facts)+1)
	facts = append(facts, s.record.Facts...)
	facts = append(facts, fact)
	if len(facts) > MaxFacts {
		facts = facts[len(facts)-MaxFacts:]
	}
	rec := s.record
	rec.Facts = facts
	if err := s.commitLocked(rec); err != nil {
		return Fact{}, err
	}
	return fact, nil
}

// Snapshot returns a deep copy of the current record.
func (s *Store) Snapshot() Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{
		Preferences:  make(map[string]string, len(s.record.Preferences)),
		RecentTables: append([]string{}, s.record.RecentTables...),
		Facts:        append([]Fact{}, s.record.Facts...),
	}
	for k, v := range s.record.Preferences {
		rec.Preferences[k] = v
	}
	return rec
}

// ContextSummary renders the record for the system prompt: preferences as
// JSON, the first recent tables and the last facts.
func (s *Store) ContextSummary() string {
	rec := s.Snapshot()

	var parts []string
	if len(rec.Preferences) > 0 {
		prefs, _ := json.Marshal(rec.Preferences)
		parts = append(parts, "User preferences: "+string(prefs))
	}
	if len(rec.RecentTables) > 0 {
		tables := rec.RecentTables
		if len(tables) > summaryTables {
			tables = tables[:summaryTables]
		}
		parts = append(parts, "Recently used tables: "+strings.Join(tables, ", "))
	}
	if len(rec.Facts) > 0 {
		facts := rec.Facts
		if len(facts) > summaryFacts {
			facts = facts[len(facts)-summaryFacts:]
		}
		texts := make([]string, len(facts))
		for i, f := range facts {
			texts[i] = f.Fact
		}
		parts = append(parts, "Known facts: "+strings.Join(texts, "; "))
	}
	if len(parts) == 0 {
		return noContext
	}
	return strings.Join(parts, "\n")
}

// commitLocked persists rec and only then makes it the in-memory record, so a
// failed write leaves both the file and the store as they were.
func (s *Store) commitLocked(rec Record) error {
	if err := s.writeLocked(rec); err != nil {
		return err
	}
	s.record = rec
	return nil
}

// writeLocked writes rec through a temp file and rename.
func (s *Store) writeLocked(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode memory: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir memory dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp memory file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write memory temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close memory temp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		// Windows can't rename over an existing file.
		_ = os.Remove(s.path)
		if retryErr := os.Rename(tmpPath, s.path); retryErr != nil {
			return fmt.Errorf("rename memory file: %w", retryErr)
		}
	}
	return nil
}
