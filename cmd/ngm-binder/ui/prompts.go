package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Prompt asks the user for input with a prompt message.
func Prompt(message string) (string, error) {
	fmt.Fprintf(os.Stdout, "%s: ", message)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// Confirm asks the user for a yes/no confirmation.
func Confirm(message string, defaultValue bool) (bool, error) {
	defaultStr := "y/N"
	if defaultValue {
		defaultStr = "Y/n"
	}

	fmt.Fprintf(os.Stdout, "%s [%s]: ", message, defaultStr)

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}

	trimmed := strings.ToLower(strings.TrimSpace(input))
	if trimmed == "" {
		return defaultValue, nil
	}
	return trimmed == "y" || trimmed == "yes", nil
}

// PromptChoice asks the user to select from a list of choices.
func PromptChoice(message string, choices []string) (int, error) {
	fmt.Fprintf(os.Stdout, "%s\n", message)
	for i, choice := range choices {
		fmt.Fprintf(os.Stdout, "  %d. %s\n", i+1, choice)
	}

	input, err := Prompt("Enter your choice")
	if err != nil {
		return 0, err
	}

	var choice int
	if _, err := fmt.Sscanf(input, "%d", &choice); err != nil {
		return 0, fmt.Errorf("invalid choice: %w", err)
	}

	if choice < 1 || choice > len(choices) {
		return 0, fmt.Errorf("choice must be between 1 and %d", len(choices))
	}

	return choice - 1, nil // Return 0-indexed
}
