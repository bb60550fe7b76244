// internal/logging/sampling.go
package logging

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newSampledCore wraps core with level-aware sampling. Each level listed in
// cfg.Levels gets its own sampler; levels without an entry and Error and
// above pass through unsampled.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled || len(cfg.Levels) == 0 {
		return core
	}

	levels := make([]zapcore.Level, 0, len(cfg.Levels))
	for level := range cfg.Levels {
		if level < zapcore.ErrorLevel {
			levels = append(levels, level)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	sampled := func(lvl zapcore.Level) bool {
		_, ok := cfg.Levels[lvl]
		return ok && lvl < zapcore.ErrorLevel
	}

	cores := []zapcore.Core{
		&levelFilterCore{
			Core:    core,
			enabled: func(lvl zapcore.Level) bool { return !sampled(lvl) },
		},
	}

	for _, level := range levels {
		rates := cfg.Levels[level]
		exact := level
		cores = append(cores, zapcore.NewSamplerWithOptions(
			&levelFilterCore{
				Core:    core,
				enabled: func(lvl zapcore.Level) bool { return lvl == exact },
			},
			cfg.Tick.Duration(),
			rates.Initial,
			rates.Thereafter,
		))
	}

	return zapcore.NewTee(cores...)
}

// levelFilterCore restricts the levels a core accepts.
type levelFilterCore struct {
	zapcore.Core
	enabled zap.LevelEnablerFunc
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return c.enabled(lvl) && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// With creates a child core that preserves level filtering.
func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{
		Core:    c.Core.With(fields),
		enabled: c.enabled,
	}
}
