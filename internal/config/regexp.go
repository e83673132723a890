package config

import (
	"context"
	"regexp"
)

// Regexp wraps *regexp.Regexp so validation rules can be supplied through the
// environment. An unset variable leaves the inner regexp nil; Load fills in the
// default rule afterwards.
type Regexp struct {
	*regexp.Regexp
}

// EnvDecode implements envconfig.Decoder
func (r *Regexp) EnvDecode(ctx context.Context, v string) error {
	if v == "" {
		return nil
	}

	compiled, err := regexp.Compile(v)
	if err != nil {
		return err
	}

	r.Regexp = compiled
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Regexp) UnmarshalText(text []byte) error {
	return r.EnvDecode(context.Background(), string(text))
}

// MarshalText implements encoding.TextMarshaler
func (r Regexp) MarshalText() ([]byte, error) {
	if r.Regexp == nil {
		return nil, nil
	}
	return []byte(r.Regexp.String()), nil
}
