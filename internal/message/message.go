package message

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/aripalo/go-delightful"
	"github.com/enescakir/emoji"
)

var message = delightful.New("paw-wizard")

// promptBudget bounds every re-prompt loop so a bad terminal or a confused
// operator can't spin forever.
const promptBudget = 5

var ErrBudgetExhausted = errors.New("too many invalid attempts")

var selectionRegex = regexp.MustCompile(`^[0-9]+$`)

func SetSilentMode(flag bool) {
	message.SetSilentMode(flag)
}

func SetVerboseMode(flag bool) {
	message.SetVerboseMode(flag)
}

func SetEmojiMode(flag bool) {
	message.SetEmojiMode(flag)
}

func SetColorMode(flag bool) {
	message.SetColorMode(flag)
}

func MultipleSelect(message string, options []string) ([]string, error) {
	var answers []string
	prompt := survey.MultiSelect{
		Message: message,
		Options: options,
	}

	err := survey.AskOne(&prompt, &answers)
	if err != nil {
		return nil, fmt.Errorf("failed to ask question: %w", err)
	}

	return answers, nil
}

// SelectIndex presents a numbered menu and returns the zero-based index of the
// chosen option. Invalid input re-prompts up to the budget.
func SelectIndex(msg string, options []string) (int, error) {
	for i, option := range options {
		message.Infoln(emoji.SmallBlueDiamond, fmt.Sprintf("%d) %s", i+1, option))
	}
	for attempt := 0; attempt < promptBudget; attempt++ {
		answer, err := Prompt(fmt.Sprintf("%s (1-%d)", msg, len(options)), "")
		if err != nil {
			return 0, err
		}
		if idx, ok := ParseSelection(answer, len(options)); ok {
			return idx, nil
		}
		Warning("Invalid selection %q, enter a number between 1 and %d", answer, len(options))
	}
	return 0, ErrBudgetExhausted
}

// ParseSelection accepts a string as a valid menu choice only if it is an
// integer within 1..count, and returns the zero-based index.
func ParseSelection(answer string, count int) (int, bool) {
	if !selectionRegex.MatchString(answer) {
		return 0, false
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > count {
		return 0, false
	}
	return n - 1, true
}

func BoolSelect(message string) (bool, error) {
	var answer bool
	prompt := &survey.Confirm{
		Message: message,
	}

	err := survey.AskOne(prompt, &answer)
	if err != nil {
		return false, fmt.Errorf("failed to ask question: %w", err)
	}

	return answer, nil
}

func Prompt(message string, defaultValue string) (string, error) {
	var answer string
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}

	err := survey.AskOne(prompt, &answer)
	if err != nil {
		return "", fmt.Errorf("failed to ask question: %w", err)
	}

	return answer, nil
}

// Password asks for a masked secret twice and requires both entries to match.
func Password(msg string) (string, error) {
	for attempt := 0; attempt < promptBudget; attempt++ {
		first, err := askPassword(msg)
		if err != nil {
			return "", err
		}
		second, err := askPassword(msg + " (confirm)")
		if err != nil {
			return "", err
		}
		if first == second {
			return first, nil
		}
		Warning("Entries do not match, try again")
	}
	return "", ErrBudgetExhausted
}

func askPassword(msg string) (string, error) {
	var answer string
	prompt := &survey.Password{
		Message: msg,
	}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return "", fmt.Errorf("failed to ask question: %w", err)
	}
	return answer, nil
}

func Debug(format string, args ...any) {
	message.Debugln(emoji.HammerAndWrench, fmt.Sprintf(format, args...))
}

func Warning(format string, args ...any) {
	message.Warningln(emoji.Warning, fmt.Sprintf(format, args...))
}

func Info(format string, args ...any) {
	message.Infoln(emoji.Information, fmt.Sprintf(format, args...))
}

func Success(format string, args ...any) {
	message.Infoln(emoji.CheckMarkButton, fmt.Sprintf(format, args...))
}

func Error(format string, args ...any) {
	message.Failureln(emoji.CrossMark, fmt.Sprintf(format, args...))
}
