package modbot

import (
	"fmt"
)

// ConfigError is fatal: the run cannot start without a valid config and bot list.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// EntryError records a failure that was skipped over during a run.
type EntryError struct {
	Bot     string
	Account string
	Err     error
}

func (e EntryError) Error() string {
	if e.Account != "" {
		return fmt.Sprintf("u/%s (%s): %s", e.Account, e.Bot, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Bot, e.Err)
}

func (e EntryError) Unwrap() error {
	return e.Err
}
