package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	apperrors "github.com/rohankatakam/repolens/internal/errors"
)

// PromptGitHubToken asks for a token on the terminal without echoing it.
// Piped input is read as a plain line, so `echo $TOKEN | repolens login` works.
func PromptGitHubToken(out io.Writer) (string, error) {
	if !DetectMode().AllowsInteractivePrompts() {
		return "", apperrors.New(apperrors.KindInternal, "cannot prompt for a token in CI; set GITHUB_TOKEN instead")
	}

	fmt.Fprint(out, "GitHub personal access token: ")
	token, err := readSecurely(os.Stdin)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.New(apperrors.KindInternal, "no token entered")
	}
	return token, nil
}

func readSecurely(in *os.File) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return line, nil
}
