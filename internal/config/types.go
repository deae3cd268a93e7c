package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// redactedValue replaces a Secret in every rendered form.
const redactedValue = "[REDACTED]"

// ErrRedactedSecret is returned when decoding a value that was produced by
// rendering a Secret rather than by a user.
var ErrRedactedSecret = errors.New("secret value is a redaction placeholder")

// Duration is a time.Duration read from text such as "30s" or "1m30s".
// Negative values are rejected.
type Duration time.Duration

// Duration returns the value as a time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	switch {
	case err != nil:
		return fmt.Errorf("invalid duration %q: %w", text, err)
	case v < 0:
		return fmt.Errorf("invalid duration %q: must not be negative", text)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Secret is a credential such as an API key. It renders as [REDACTED] through
// fmt, JSON, YAML and text encoding. Value is the only way to read it.
type Secret string

func (s Secret) rendered() string {
	if s == "" {
		return ""
	}
	return redactedValue
}

// Value returns the raw credential.
func (s Secret) Value() string { return string(s) }

// IsSet reports whether a credential was configured.
func (s Secret) IsSet() bool { return s != "" }

func (s Secret) String() string { return s.rendered() }

// GoString covers %#v.
func (s Secret) GoString() string { return "Secret(" + redactedValue + ")" }

func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(s.rendered()) }

func (s Secret) MarshalText() ([]byte, error) { return []byte(s.rendered()), nil }

func (s Secret) MarshalYAML() (interface{}, error) { return s.rendered(), nil }

// UnmarshalText is used by koanf for file and environment values alike.
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(text)
	return nil
}

// UnmarshalJSON refuses the redaction placeholder so a config dumped with
// its secrets masked cannot be loaded back as if the mask were the key.
func (s *Secret) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == redactedValue {
		return ErrRedactedSecret
	}
	*s = Secret(raw)
	return nil
}
