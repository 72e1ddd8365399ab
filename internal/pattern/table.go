// Package pattern holds the curated performance pattern table and the
// enhancer that maps inbound signals through it.
package pattern

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultTimeframe is used when a signal carries no timeframe.
const DefaultTimeframe = "DAILY"

// Key identifies a pattern by instrument and timeframe.
type Key struct {
	Instrument string
	Timeframe  string
}

// NewKey builds a normalized key. An empty timeframe falls back to DAILY.
func NewKey(instrument, timeframe string) Key {
	timeframe = strings.ToUpper(strings.TrimSpace(timeframe))
	if timeframe == "" {
		timeframe = DefaultTimeframe
	}
	return Key{
		Instrument: strings.ToUpper(strings.TrimSpace(instrument)),
		Timeframe:  timeframe,
	}
}

func (k Key) String() string {
	return k.Instrument + "_" + k.Timeframe
}

// Record holds the historical performance constants for one pattern.
type Record struct {
	BaseReturn      float64 `json:"base_return" mapstructure:"base_return"`
	EnhancedReturn  float64 `json:"enhanced_return" mapstructure:"enhanced_return"`
	ConfidenceBoost float64 `json:"confidence_boost" mapstructure:"confidence_boost"`
}

// KellyMultiplier is the ratio of enhanced to base return.
func (r Record) KellyMultiplier() float64 {
	return r.EnhancedReturn / r.BaseReturn
}

func (r Record) validate() error {
	if r.ConfidenceBoost < 0 || r.ConfidenceBoost >= 1 {
		return fmt.Errorf("confidence_boost must be in [0, 1), got %v", r.ConfidenceBoost)
	}
	if r.BaseReturn <= 0 {
		return fmt.Errorf("base_return must be positive, got %v", r.BaseReturn)
	}
	if r.EnhancedReturn < r.BaseReturn {
		return fmt.Errorf("enhanced_return %v below base_return %v", r.EnhancedReturn, r.BaseReturn)
	}
	return nil
}

// Entry pairs a key with its record.
type Entry struct {
	Key    Key
	Record Record
}

// Table is an immutable lookup of pattern records.
type Table struct {
	records map[Key]Record
}

// NewTable validates entries and builds a table. Duplicate keys are rejected.
func NewTable(entries []Entry) (*Table, error) {
	records := make(map[Key]Record, len(entries))
	for _, e := range entries {
		key := NewKey(e.Key.Instrument, e.Key.Timeframe)
		if key.Instrument == "" {
			return nil, fmt.Errorf("pattern with empty instrument")
		}
		if err := e.Record.validate(); err != nil {
			return nil, fmt.Errorf("pattern %s: %w", key, err)
		}
		if _, dup := records[key]; dup {
			return nil, fmt.Errorf("duplicate pattern %s", key)
		}
		records[key] = e.Record
	}
	return &Table{records: records}, nil
}

// Lookup returns the record for key.
func (t *Table) Lookup(key Key) (Record, bool) {
	r, ok := t.records[key]
	return r, ok
}

// Len returns the number of patterns.
func (t *Table) Len() int {
	return len(t.records)
}

// Entries returns a copy of the table sorted by enhanced return, highest first.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.records))
	for k, r := range t.records {
		out = append(out, Entry{Key: k, Record: r})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Record.EnhancedReturn != out[j].Record.EnhancedReturn {
			return out[i].Record.EnhancedReturn > out[j].Record.EnhancedReturn
		}
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

// DefaultEntries are the curated patterns validated offline.
func DefaultEntries() []Entry {
	return []Entry{
		{Key{"GBPUSD", "DAILY"}, Record{79.5, 133.0, 0.18}},
		{Key{"AUDCAD", "DAILY"}, Record{77.4, 129.8, 0.20}},
		{Key{"NZDUSD", "WEEKLY"}, Record{61.7, 105.9, 0.18}},
		{Key{"EURUSD", "4H"}, Record{43.2, 72.0, 0.19}},
		{Key{"USDCHF", "DAILY"}, Record{41.2, 70.9, 0.18}},
		{Key{"NZDCAD", "WEEKLY"}, Record{25.4, 42.5, 0.15}},
		{Key{"GBPAUD", "DAILY"}, Record{25.3, 44.3, 0.12}},
		{Key{"GBPNZD", "DAILY"}, Record{21.3, 35.7, 0.14}},
		{Key{"EURCAD", "WEEKLY"}, Record{13.8, 24.2, 0.15}},
		{Key{"GBPNZD", "4H"}, Record{11.2, 19.1, 0.20}},
		{Key{"GBPCHF", "WEEKLY"}, Record{9.5, 16.3, 0.16}},
	}
}

// DefaultTable returns the table built from DefaultEntries.
func DefaultTable() *Table {
	t, err := NewTable(DefaultEntries())
	if err != nil {
		panic(err)
	}
	return t
}
