package config

import (
	"path"
	"sort"
	"strings"
)

// LootEntry is one reward table row. The item identifier is the map key in
// Show.LootDropItems; Name is filled in by Show.LootEntries.
type LootEntry struct {
	Name string `json:"-"`
	Min  int    `json:"min"`
	Max  int    `json:"max"`
}

// Show is the show Configuration document. Keys are kept verbatim so files
// written by earlier deployments keep loading.
type Show struct {
	OnlyWhenPlayersOnline   bool `json:"OnlyWhenPlayersOnline"`
	EnableMapMarkers        bool `json:"EnableMapMarkers"`
	EnableStaggeredFireMode bool `json:"EnableStaggeredFireMode"`
	EnableLootDrops         bool `json:"EnableLootDrops"`

	LootDropChance float64              `json:"LootDropChance"`
	LootDropItems  map[string]LootEntry `json:"LootDropItems"`

	SpawnAtRandomPlayersMapLocation bool    `json:"SpawnAtRandomPlayersMapLocation"`
	OnlySpawnOnLand                 bool    `json:"OnlySpawnOnLand"`
	OnlySpawnAtMonuments            bool    `json:"OnlySpawnAtMonuments"`
	SpreadRadius                    float64 `json:"SpreadRadius"`
	HeightOffset                    float64 `json:"HeightOffset"`
	PlayerSelectionRadius           float64 `json:"PlayerSelectionRadius"`

	AutomaticShowsEnabled               bool    `json:"AutomaticShowsEnabled"`
	AutomaticShowsIntervalMinSeconds    float64 `json:"AutomaticShowsIntervalMinSeconds"`
	AutomaticShowsIntervalMaxSeconds    float64 `json:"AutomaticShowsIntervalMaxSeconds"`
	AutomaticShowsFireworksMin          int     `json:"AutomaticShowsFireworksMin"`
	AutomaticShowsFireworksMax          int     `json:"AutomaticShowsFireworksMax"`
	AutomaticShowsDiceRollChancePercent int     `json:"AutomaticShowsDiceRollChancePercent"`

	TimeBasedShowsEnabled               bool    `json:"TimeBasedShowsEnabled"`
	TimeBasedShowsFireworksMin          int     `json:"TimeBasedShowsFireworksMin"`
	TimeBasedShowsFireworksMax          int     `json:"TimeBasedShowsFireworksMax"`
	TimeBasedStartHour                  float64 `json:"TimeBasedStartHour"`
	TimeBasedShowEndHour                float64 `json:"TimeBasedShowEndHour"`
	TimedShowIntervalMinSeconds         float64 `json:"TimedShowIntervalMinSeconds"`
	TimedShowIntervalMaxSeconds         float64 `json:"TimedShowIntervalMaxSeconds"`
	TimeBasedShowsDiceRollChancePercent int     `json:"TimeBasedShowsDiceRollChancePercent"`

	// Cron-driven shows (standard 5-field specs or descriptors like "@daily").
	ScheduledShowsEnabled bool     `json:"ScheduledShowsEnabled"`
	ScheduledShowCron     []string `json:"ScheduledShowCron"`
	// ScheduledShowTimezone is an IANA zone name; empty means local time.
	ScheduledShowTimezone string `json:"ScheduledShowTimezone,omitempty"`

	// MonumentWhitelist overrides the built-in list of monument short names.
	MonumentWhitelist []string `json:"MonumentWhitelist,omitempty"`
}

// DefaultShow returns the hard-coded default Configuration.
func DefaultShow() *Show {
	return &Show{
		OnlyWhenPlayersOnline:   true,
		EnableMapMarkers:        true,
		EnableStaggeredFireMode: true,
		EnableLootDrops:         true,

		LootDropChance: 50.0,
		LootDropItems:  defaultLoot(),

		SpawnAtRandomPlayersMapLocation: false,
		OnlySpawnOnLand:                 true,
		OnlySpawnAtMonuments:            false,
		SpreadRadius:                    30,
		HeightOffset:                    30,
		PlayerSelectionRadius:           500,

		AutomaticShowsEnabled:               false,
		AutomaticShowsIntervalMinSeconds:    3600,
		AutomaticShowsIntervalMaxSeconds:    7200,
		AutomaticShowsFireworksMin:          1,
		AutomaticShowsFireworksMax:          6,
		AutomaticShowsDiceRollChancePercent: 50,

		TimeBasedShowsEnabled:               true,
		TimeBasedShowsFireworksMin:          3,
		TimeBasedShowsFireworksMax:          60,
		TimeBasedStartHour:                  19.50,
		TimeBasedShowEndHour:                7.50,
		TimedShowIntervalMinSeconds:         15,
		TimedShowIntervalMaxSeconds:         30,
		TimeBasedShowsDiceRollChancePercent: 50,

		ScheduledShowCron: []string{},
	}
}

func defaultLoot() map[string]LootEntry {
	return map[string]LootEntry{
		"gunpowder":       {Min: 3, Max: 5},
		"cloth":           {Min: 3, Max: 5},
		"charcoal":        {Min: 5, Max: 10},
		"metal.fragments": {Min: 3, Max: 5},
	}
}

// DefaultMonumentWhitelist lists the monument short names shows may use.
var DefaultMonumentWhitelist = []string{
	"airfield_1",
	"arctic_research_base_a",
	"bandit_town",
	"compound",
	"desert_military_base_a",
	"desert_military_base_b",
	"desert_military_base_c",
	"desert_military_base_d",
	"excavator_1",
	"ferry_terminal_1",
	"fishing_village_a",
	"fishing_village_b",
	"fishing_village_c",
	"gas_station_1",
	"harbor_1",
	"harbor_2",
	"junkyard_1",
	"launch_site_1",
	"lighthouse",
	"oilrig_1",
	"oilrig_2",
	"powerplant_1",
	"radtown_small_3",
	"satellite_dish",
	"stables_a",
	"stables_b",
	"supermarket_1",
	"warehouse",
	"water_treatment_plant_1",
}

// Clone returns a deep copy.
func (s *Show) Clone() *Show {
	if s == nil {
		return nil
	}
	c := *s
	if s.LootDropItems != nil {
		c.LootDropItems = make(map[string]LootEntry, len(s.LootDropItems))
		for k, v := range s.LootDropItems {
			c.LootDropItems[k] = v
		}
	}
	c.ScheduledShowCron = append([]string(nil), s.ScheduledShowCron...)
	if s.MonumentWhitelist != nil {
		c.MonumentWhitelist = append([]string(nil), s.MonumentWhitelist...)
	}
	return &c
}

// Normalize repairs loot rows so that 0 <= Min <= Max and drops blank keys.
// It reports whether anything changed.
func (s *Show) Normalize() bool {
	changed := false
	for name, e := range s.LootDropItems {
		if strings.TrimSpace(name) == "" {
			delete(s.LootDropItems, name)
			changed = true
			continue
		}
		fixed := e
		if fixed.Min < 0 {
			fixed.Min = 0
		}
		if fixed.Max < fixed.Min {
			fixed.Max = fixed.Min
		}
		if fixed != e {
			s.LootDropItems[name] = fixed
			changed = true
		}
	}
	if s.ScheduledShowCron == nil {
		s.ScheduledShowCron = []string{}
	}
	return changed
}

// LootEntries returns the reward table sorted by item name.
func (s *Show) LootEntries() []LootEntry {
	out := make([]LootEntry, 0, len(s.LootDropItems))
	for name, e := range s.LootDropItems {
		e.Name = name
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Whitelist returns the effective monument short-name set.
func (s *Show) Whitelist() map[string]struct{} {
	names := s.MonumentWhitelist
	if len(names) == 0 {
		names = DefaultMonumentWhitelist
	}
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			out[n] = struct{}{}
		}
	}
	return out
}

// MonumentShortName turns a prefab path into its short name:
// "assets/.../harbor_1.prefab" -> "harbor_1".
func MonumentShortName(prefab string) string {
	base := path.Base(strings.ReplaceAll(prefab, "\\", "/"))
	return strings.ToLower(strings.TrimSuffix(base, ".prefab"))
}
