package wizard

import "github.com/pawops/paw-wizard/internal/message"

// Prompter is the interactive surface of the workflow. The console
// implementation delegates to the message package; tests script it.
type Prompter interface {
	// Select presents a numbered menu and returns the chosen index.
	Select(msg string, options []string) (int, error)
	// Input asks for free text; blank input returns the default.
	Input(msg, defaultValue string) (string, error)
	Confirm(msg string) (bool, error)
	MultiSelect(msg string, options []string) ([]string, error)
	// Password asks for a masked secret, entered twice.
	Password(msg string) (string, error)
}

type consolePrompter struct{}

// NewConsolePrompter returns the survey-backed Prompter.
func NewConsolePrompter() Prompter {
	return consolePrompter{}
}

func (consolePrompter) Select(msg string, options []string) (int, error) {
	return message.SelectIndex(msg, options)
}

func (consolePrompter) Input(msg, defaultValue string) (string, error) {
	return message.Prompt(msg, defaultValue)
}

func (consolePrompter) Confirm(msg string) (bool, error) {
	return message.BoolSelect(msg)
}

func (consolePrompter) MultiSelect(msg string, options []string) ([]string, error) {
	return message.MultipleSelect(msg, options)
}

func (consolePrompter) Password(msg string) (string, error) {
	return message.Password(msg)
}
