package models

import "encoding/json"

// Leech actions.
const (
	LeechTagOnly       = "tag_only"
	LeechSuspend       = "suspend"
	LeechTagAndSuspend = "tag_and_suspend"
)

// SchedulerSM2 is the default scheduling algorithm.
const SchedulerSM2 = "sm2"

// DeckOptions is the scheduling policy bag stored on a deck.
//
// Every field has a documented default; a missing or malformed key in the
// stored JSON never raises, it falls back silently.
type DeckOptions struct {
	Scheduler              string
	LearnSteps             []float64 // minutes
	RelearnSteps           []float64 // minutes
	GraduatingIntervalGood int       // days
	EasyInterval           int       // days
	InitialEase            float64
	EasyBonus              float64
	HardMultiplier         float64
	LapseMultiplier        float64
	IntervalModifier       float64
	MaximumInterval        int // days
	MinimumLapseInterval   int // days
	NewPerDay              int
	ReviewsPerDay          int
	LeechThreshold         int
	LeechAction            string
	BuryNew                bool
	BuryReviews            bool
	BuryInterdayLearning   bool
}

// DefaultDeckOptions returns the policy used when a deck carries no options.
func DefaultDeckOptions() DeckOptions {
	return DeckOptions{
		Scheduler:              SchedulerSM2,
		LearnSteps:             []float64{1, 10},
		RelearnSteps:           []float64{10},
		GraduatingIntervalGood: 1,
		EasyInterval:           4,
		InitialEase:            2.5,
		EasyBonus:              1.3,
		HardMultiplier:         1.2,
		LapseMultiplier:        0.0,
		IntervalModifier:       1.0,
		MaximumInterval:        36500,
		MinimumLapseInterval:   1,
		NewPerDay:              20,
		ReviewsPerDay:          200,
		LeechThreshold:         8,
		LeechAction:            LeechTagOnly,
	}
}

// ParseDeckOptions decodes a deck's options JSON. Unknown keys are ignored
// and wrong-typed values fall back to the default for that key.
func ParseDeckOptions(raw []byte) DeckOptions {
	opts := DefaultDeckOptions()
	if len(raw) == 0 {
		return opts
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return opts
	}
	opts.Scheduler = optString(m, "scheduler", opts.Scheduler)
	opts.LearnSteps = optSteps(m, "learn_steps", opts.LearnSteps)
	opts.RelearnSteps = optSteps(m, "relearn_steps", opts.RelearnSteps)
	opts.GraduatingIntervalGood = optInt(m, "graduating_interval_good", opts.GraduatingIntervalGood)
	opts.EasyInterval = optInt(m, "easy_interval", opts.EasyInterval)
	opts.InitialEase = optFloat(m, "initial_ease", opts.InitialEase)
	opts.EasyBonus = optFloat(m, "easy_bonus", opts.EasyBonus)
	opts.HardMultiplier = optFloat(m, "hard_multiplier", opts.HardMultiplier)
	opts.LapseMultiplier = optFloat(m, "lapse_multiplier", opts.LapseMultiplier)
	opts.IntervalModifier = optFloat(m, "interval_modifier", opts.IntervalModifier)
	opts.MaximumInterval = optInt(m, "maximum_interval", opts.MaximumInterval)
	opts.MinimumLapseInterval = optInt(m, "minimum_lapse_interval", opts.MinimumLapseInterval)
	opts.NewPerDay = optInt(m, "new_per_day", opts.NewPerDay)
	opts.ReviewsPerDay = optInt(m, "reviews_per_day", opts.ReviewsPerDay)
	opts.LeechThreshold = optInt(m, "leech_threshold", opts.LeechThreshold)
	opts.LeechAction = optString(m, "leech_action", opts.LeechAction)
	opts.BuryNew = optBool(m, "bury_new", opts.BuryNew)
	opts.BuryReviews = optBool(m, "bury_reviews", opts.BuryReviews)
	opts.BuryInterdayLearning = optBool(m, "bury_interday_learning", opts.BuryInterdayLearning)
	return opts
}

// JSON encodes the options in their stored snake_case form.
func (o DeckOptions) JSON() []byte {
	b, _ := json.Marshal(map[string]any{
		"scheduler":                o.Scheduler,
		"learn_steps":              o.LearnSteps,
		"relearn_steps":            o.RelearnSteps,
		"graduating_interval_good": o.GraduatingIntervalGood,
		"easy_interval":            o.EasyInterval,
		"initial_ease":             o.InitialEase,
		"easy_bonus":               o.EasyBonus,
		"hard_multiplier":          o.HardMultiplier,
		"lapse_multiplier":         o.LapseMultiplier,
		"interval_modifier":        o.IntervalModifier,
		"maximum_interval":         o.MaximumInterval,
		"minimum_lapse_interval":   o.MinimumLapseInterval,
		"new_per_day":              o.NewPerDay,
		"reviews_per_day":          o.ReviewsPerDay,
		"leech_threshold":          o.LeechThreshold,
		"leech_action":             o.LeechAction,
		"bury_new":                 o.BuryNew,
		"bury_reviews":             o.BuryReviews,
		"bury_interday_learning":   o.BuryInterdayLearning,
	})
	return b
}

// InitialEasePermille converts the configured initial ease to storage form.
func (o DeckOptions) InitialEasePermille() int {
	return int(o.InitialEase * 1000)
}

// FirstLearnStep returns the first learning step in minutes.
func (o DeckOptions) FirstLearnStep() float64 {
	if len(o.LearnSteps) == 0 {
		return 1
	}
	return o.LearnSteps[0]
}

// FirstRelearnStep returns the first relearning step in minutes.
func (o DeckOptions) FirstRelearnStep() float64 {
	if len(o.RelearnSteps) == 0 {
		return 10
	}
	return o.RelearnSteps[0]
}

func optFloat(m map[string]any, key string, def float64) float64 {
	v, ok := m[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return def
}

func optInt(m map[string]any, key string, def int) int {
	v, ok := m[key]
	if !ok {
		return def
	}
	if n, ok := v.(float64); ok {
		return int(n)
	}
	return def
}

func optBool(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

func optString(m map[string]any, key string, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

func optSteps(m map[string]any, key string, def []float64) []float64 {
	v, ok := m[key].([]any)
	if !ok || len(v) == 0 {
		return def
	}
	steps := make([]float64, 0, len(v))
	for _, s := range v {
		n, ok := s.(float64)
		if !ok || n <= 0 {
			return def
		}
		steps = append(steps, n)
	}
	return steps
}
