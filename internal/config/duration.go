package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// Duration is a time.Duration read from the environment. A leading day count
// is accepted in front of the usual units, so "1d", "2d12h" and "90s" all parse.
type Duration struct {
	time.Duration
}

// EnvDecode implements envconfig.Decoder. Empty values leave the default in place.
func (d *Duration) EnvDecode(_ context.Context, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}

	parsed, err := parseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", v, err)
	}
	if parsed < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", v)
	}

	d.Duration = parsed
	return nil
}

func parseDuration(v string) (time.Duration, error) {
	days, rest, found := strings.Cut(v, "d")
	if !found {
		return time.ParseDuration(v)
	}

	n, err := strconv.Atoi(days)
	if err != nil {
		return 0, errors.New("day count must be an integer")
	}

	total := time.Duration(n) * day
	if rest == "" {
		return total, nil
	}

	remainder, err := time.ParseDuration(rest)
	if err != nil {
		return 0, err
	}
	return total + remainder, nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	return d.EnvDecode(context.Background(), string(text))
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Duration) String() string {
	return d.Duration.String()
}
