package pomodoro

// Duration bounds for user-editable settings. Values outside the bounds are
// clamped, not rejected.
const (
	MinWorkMinutes       = 1
	MaxWorkMinutes       = 120
	MinShortBreakMinutes = 1
	MaxShortBreakMinutes = 30
	MinLongBreakMinutes  = 5
	MaxLongBreakMinutes  = 60
	MinSessionsUntilLong = 1
	MaxSessionsUntilLong = 10
)

// Settings holds the user-configurable timer durations and auto-start
// policies. Edits take effect on the next phase entry, never retroactively
// on a running countdown.
type Settings struct {
	WorkMinutes            int  `yaml:"work_minutes" json:"workMinutes"`
	ShortBreakMinutes      int  `yaml:"short_break_minutes" json:"shortBreakMinutes"`
	LongBreakMinutes       int  `yaml:"long_break_minutes" json:"longBreakMinutes"`
	SessionsUntilLongBreak int  `yaml:"sessions_until_long_break" json:"sessionsUntilLongBreak"`
	AutoStartBreaks        bool `yaml:"auto_start_breaks" json:"autoStartBreaks"`
	AutoStartNextSession   bool `yaml:"auto_start_next_session" json:"autoStartNextSession"`
}

// DefaultSettings returns the standard 25/5/15 pomodoro configuration.
func DefaultSettings() Settings {
	return Settings{
		WorkMinutes:            25,
		ShortBreakMinutes:      5,
		LongBreakMinutes:       15,
		SessionsUntilLongBreak: 4,
		AutoStartBreaks:        true,
		AutoStartNextSession:   false,
	}
}

// Clamp returns a copy with every duration forced into its documented range.
func (s Settings) Clamp() Settings {
	s.WorkMinutes = clampInt(s.WorkMinutes, MinWorkMinutes, MaxWorkMinutes)
	s.ShortBreakMinutes = clampInt(s.ShortBreakMinutes, MinShortBreakMinutes, MaxShortBreakMinutes)
	s.LongBreakMinutes = clampInt(s.LongBreakMinutes, MinLongBreakMinutes, MaxLongBreakMinutes)
	s.SessionsUntilLongBreak = clampInt(s.SessionsUntilLongBreak, MinSessionsUntilLong, MaxSessionsUntilLong)
	return s
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
