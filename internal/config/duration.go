package config

import (
	"fmt"
	"time"
)

// Duration wraps time.Duration so it can be read from both YAML and
// environment variables in the "3m" / "90s" notation.
type Duration time.Duration

// Minutes returns a Duration of n minutes.
func Minutes(n int) Duration {
	return Duration(time.Duration(n) * time.Minute)
}

// Duration returns the wrapped time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(value string) error {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value, err)
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return d.Decode(raw)
}
