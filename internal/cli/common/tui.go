package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/crmarques/orgsync/orchestrator"
)

const maxListedKeys = 10

func PromptConfirm(command *cobra.Command, prompt string, defaultYes bool) (bool, error) {
	if !IsInteractiveTerminal(command) {
		return false, ValidationError("interactive terminal is required", nil)
	}

	value := defaultYes
	field := huh.NewConfirm().
		Title(normalizePrompt(prompt)).
		Value(&value)

	if err := runInteractiveField(command, field); err != nil {
		return false, err
	}
	return value, nil
}

// CleanupConfirm asks on the terminal before deleting the orphans of each
// type.
func CleanupConfirm(command *cobra.Command) orchestrator.ConfirmFunc {
	return func(_ context.Context, typeName string, keys []string) (bool, error) {
		listed := keys
		suffix := ""
		if len(listed) > maxListedKeys {
			listed = listed[:maxListedKeys]
			suffix = fmt.Sprintf(" and %d more", len(keys)-maxListedKeys)
		}
		prompt := fmt.Sprintf("Delete %d %s from the destination org (%s%s)?", len(keys), typeName, strings.Join(listed, ", "), suffix)
		return PromptConfirm(command, prompt, false)
	}
}

func runInteractiveField(command *cobra.Command, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithInput(command.InOrStdin()).
		WithOutput(command.OutOrStdout()).
		WithShowHelp(false)

	err := form.Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ValidationError("interactive prompt interrupted", nil)
	}
	return err
}

func normalizePrompt(prompt string) string {
	title := strings.TrimSpace(prompt)
	title = strings.TrimSuffix(title, ":")
	if title == "" {
		return "Confirm"
	}
	return title
}
