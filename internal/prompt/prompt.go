// Package prompt implements interactive terminal prompts on top of huh.
package prompt

import (
	"github.com/charmbracelet/huh"
)

// Terminal prompts the operator on the controlling terminal. It satisfies
// the syncer's Prompter interface.
type Terminal struct{}

// Choose presents a single-select menu and returns the chosen option.
func (Terminal) Choose(title string, options []string) (string, error) {
	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, o)
	}

	var choice string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(title).
			Options(opts...).
			Value(&choice),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return choice, nil
}

// Input asks for a single line of text, pre-filled with defaultValue.
func (Terminal) Input(title, defaultValue string) (string, error) {
	value := defaultValue
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(title).
			Value(&value),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return value, nil
}
