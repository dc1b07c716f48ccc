package main

import (
	"errors"

	"github.com/cqroot/prompt"
)

// prompter asks the user questions. Input returns def when the answer is empty.
type prompter interface {
	Choose(question string, choices []string) (string, error)
	Input(question, def string) (string, error)
}

type cqPrompter struct{}

func (cqPrompter) Choose(question string, choices []string) (string, error) {
	return prompt.New().Ask(question).Choose(choices)
}

func (cqPrompter) Input(question, def string) (string, error) {
	return prompt.New().Ask(question).Input(def)
}

// isQuit reports whether the user aborted a prompt.
func isQuit(err error) bool {
	return errors.Is(err, prompt.ErrUserQuit)
}

// confirm asks a yes/no question defaulting to no.
func confirm(p prompter, question string) (bool, error) {
	answer, err := p.Choose(question, []string{"No", "Yes"})
	if err != nil {
		return false, err
	}
	return answer == "Yes", nil
}
