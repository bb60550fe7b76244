package config

import (
	"fmt"
	"time"
)

// Duration is a time.Duration that koanf can decode from "300s"-style
// strings in YAML files and environment variables.
type Duration time.Duration

// UnmarshalText parses text with time.ParseDuration. Negative values are
// rejected.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("duration cannot be negative: %s", text)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
