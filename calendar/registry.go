// Package calendar decides whether a date is a workday, a rest day or a
// statutory holiday, using per-year holiday and override-workday sets
// loaded from a JSON config file.
package calendar

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// yearEntry is the on-disk per-year shape:
//
//	{ "2024": { "holidays": ["2024-02-10", ...], "workdays": ["2024-02-04", ...] } }
type yearEntry struct {
	Holidays []string `json:"holidays,omitempty"`
	Workdays []string `json:"workdays,omitempty"`
}

type registrySnapshot struct {
	holidays map[int]map[string]struct{}
	workdays map[int]map[string]struct{}
}

// HolidayRegistry holds holiday and override-workday dates keyed by year.
// It is read-mostly and safe for concurrent use: Reload swaps a complete
// snapshot, so lookups see either the old or the new state, never a mix.
type HolidayRegistry struct {
	mu         sync.RWMutex
	snapshot   *registrySnapshot
	configPath string
}

// NewHolidayRegistry loads the registry from configPath. A missing or
// malformed file logs and yields an empty registry; startup never fails
// on holiday data.
func NewHolidayRegistry(configPath string) *HolidayRegistry {
	r := &HolidayRegistry{configPath: configPath}
	r.snapshot = loadSnapshot(configPath)
	return r
}

func loadSnapshot(configPath string) *registrySnapshot {
	snap := &registrySnapshot{
		holidays: make(map[int]map[string]struct{}),
		workdays: make(map[int]map[string]struct{}),
	}

	if configPath == "" {
		return snap
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		log.Printf("Holiday config %s not readable, starting empty: %v", configPath, err)
		return snap
	}

	var raw map[string]yearEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("Holiday config %s is malformed, starting empty: %v", configPath, err)
		return snap
	}

	for yearStr, entry := range raw {
		var year int
		if _, err := fmt.Sscanf(yearStr, "%d", &year); err != nil {
			log.Printf("Skipping holiday config year %q: %v", yearStr, err)
			continue
		}
		if len(entry.Holidays) > 0 {
			snap.holidays[year] = toSet(entry.Holidays)
		}
		if len(entry.Workdays) > 0 {
			snap.workdays[year] = toSet(entry.Workdays)
		}
	}

	return snap
}

func toSet(dates []string) map[string]struct{} {
	set := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}

// Reload re-reads the config file and atomically replaces the registry
// contents.
func (r *HolidayRegistry) Reload() {
	snap := loadSnapshot(r.configPath)
	r.mu.Lock()
	r.snapshot = snap
	r.mu.Unlock()
}

// IsHoliday reports whether date ("YYYY-MM-DD") is a statutory holiday.
func (r *HolidayRegistry) IsHoliday(date string) bool {
	year, ok := yearOf(date)
	if !ok {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, found := r.snapshot.holidays[year][date]
	return found
}

// IsWorkdayOverride reports whether date is an administratively
// redesignated working day.
func (r *HolidayRegistry) IsWorkdayOverride(date string) bool {
	year, ok := yearOf(date)
	if !ok {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, found := r.snapshot.workdays[year][date]
	return found
}

// AddHoliday records date as a statutory holiday.
func (r *HolidayRegistry) AddHoliday(date string) {
	r.addTo(date, true)
}

// AddWorkdayOverride records date as an override workday.
func (r *HolidayRegistry) AddWorkdayOverride(date string) {
	r.addTo(date, false)
}

func (r *HolidayRegistry) addTo(date string, holiday bool) {
	year, ok := yearOf(date)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	target := r.snapshot.workdays
	if holiday {
		target = r.snapshot.holidays
	}
	if target[year] == nil {
		target[year] = make(map[string]struct{})
	}
	target[year][date] = struct{}{}
}

// RemoveHoliday discards date from the holiday set.
func (r *HolidayRegistry) RemoveHoliday(date string) {
	r.removeFrom(date, true)
}

// RemoveWorkdayOverride discards date from the override-workday set.
func (r *HolidayRegistry) RemoveWorkdayOverride(date string) {
	r.removeFrom(date, false)
}

func (r *HolidayRegistry) removeFrom(date string, holiday bool) {
	year, ok := yearOf(date)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	target := r.snapshot.workdays
	if holiday {
		target = r.snapshot.holidays
	}
	delete(target[year], date)
}

// Save writes the current registry back to the config file, years sorted.
func (r *HolidayRegistry) Save() error {
	r.mu.RLock()
	raw := make(map[string]yearEntry)
	years := make(map[int]struct{})
	for y := range r.snapshot.holidays {
		years[y] = struct{}{}
	}
	for y := range r.snapshot.workdays {
		years[y] = struct{}{}
	}
	for year := range years {
		entry := yearEntry{
			Holidays: sortedDates(r.snapshot.holidays[year]),
			Workdays: sortedDates(r.snapshot.workdays[year]),
		}
		raw[fmt.Sprintf("%d", year)] = entry
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode holiday config: %w", err)
	}

	if dir := filepath.Dir(r.configPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}

	if err := os.WriteFile(r.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write holiday config: %w", err)
	}
	return nil
}

func sortedDates(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	dates := make([]string, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

func yearOf(date string) (int, bool) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, false
	}
	return t.Year(), true
}
