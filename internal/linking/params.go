package linking

// Params are the centrally configured linking policy knobs. The legacy system
// scattered inconsistent values across call sites (0.55 vs 0.7 suggest
// threshold, top-5 vs top-10 windows); here every call site reads from one
// Params value and the defaults are the documented policy.
type Params struct {
	// AutoLinkThreshold: similarity strictly above this creates a connection
	AutoLinkThreshold float64 `yaml:"auto_link_threshold"`
	// SuggestThreshold: similarity at or above this (and not auto-linked)
	// creates a pending suggestion
	SuggestThreshold float64 `yaml:"suggest_threshold"`
	// TopK: scored candidates are truncated to this window before acting
	TopK int `yaml:"top_k"`
	// PoolCap: max candidates fetched per item type
	PoolCap int `yaml:"pool_cap"`

	// MinSharedEntities: entity overlap qualifies only at this many shared names
	MinSharedEntities int `yaml:"min_shared_entities"`
	// TemporalWindowDays: candidates searched within ±window of the source.
	// TemporalQualifyDays: only candidates within this many days score nonzero.
	// The window/qualify asymmetry (7 vs 1) is inherited policy, kept tunable
	// rather than re-derived.
	TemporalWindowDays  float64 `yaml:"temporal_window_days"`
	TemporalQualifyDays float64 `yaml:"temporal_qualify_days"`
}

// DefaultParams returns the default linking policy
func DefaultParams() Params {
	return Params{
		AutoLinkThreshold:   0.85,
		SuggestThreshold:    0.55,
		TopK:                5,
		PoolCap:             50,
		MinSharedEntities:   2,
		TemporalWindowDays:  7,
		TemporalQualifyDays: 1,
	}
}

// sanitize fills zero values with defaults so a partially specified config
// file doesn't zero out the policy
func (p Params) sanitize() Params {
	d := DefaultParams()
	if p.AutoLinkThreshold == 0 {
		p.AutoLinkThreshold = d.AutoLinkThreshold
	}
	if p.SuggestThreshold == 0 {
		p.SuggestThreshold = d.SuggestThreshold
	}
	if p.TopK <= 0 {
		p.TopK = d.TopK
	}
	if p.PoolCap <= 0 {
		p.PoolCap = d.PoolCap
	}
	if p.MinSharedEntities <= 0 {
		p.MinSharedEntities = d.MinSharedEntities
	}
	if p.TemporalWindowDays == 0 {
		p.TemporalWindowDays = d.TemporalWindowDays
	}
	if p.TemporalQualifyDays == 0 {
		p.TemporalQualifyDays = d.TemporalQualifyDays
	}
	return p
}
