package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// terminalPrompter is the concrete prompt boundary for interactive runs. It
// is intentionally minimal: confirmation, numbered selection and free input.
type terminalPrompter struct {
	reader *bufio.Reader
}

func newTerminalPrompter() *terminalPrompter {
	return &terminalPrompter{reader: bufio.NewReader(os.Stdin)}
}

func (p *terminalPrompter) Confirm(message string) (bool, error) {
	fmt.Printf("%s [y/N]: ", message)

	line, err := p.reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func (p *terminalPrompter) Select(message string, options []string) (int, error) {
	fmt.Println(message)
	for i, option := range options {
		fmt.Printf("  %d) %s\n", i+1, option)
	}

	for {
		fmt.Printf("Choice [1-%d]: ", len(options))
		line, err := p.reader.ReadString('\n')
		if err != nil {
			return 0, fmt.Errorf("failed to read selection: %w", err)
		}

		choice, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && choice >= 1 && choice <= len(options) {
			return choice - 1, nil
		}
		fmt.Println("Invalid choice, try again.")
	}
}

func (p *terminalPrompter) Input(message string) (string, error) {
	fmt.Printf("%s: ", message)

	line, err := p.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	return strings.TrimSpace(line), nil
}
