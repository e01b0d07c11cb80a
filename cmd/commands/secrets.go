package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/arena/internal/config"
	"github.com/dohr-michael/arena/internal/secrets"
)

// NewSecretsCommand returns the secrets subcommand.
func NewSecretsCommand() *cli.Command {
	return &cli.Command{
		Name:  "secrets",
		Usage: "Manage API keys in the arena .env file",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create the age key used to encrypt secrets",
				Action: runSecretsInit,
			},
			{
				Name:      "set",
				Usage:     "Write NAME=VALUE to the .env file (prompts when VALUE is omitted)",
				ArgsUsage: "<NAME> [VALUE]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "encrypt",
						Aliases: []string{"e"},
						Usage:   "Store the value as an age-encrypted blob",
					},
				},
				Action: runSecretsSet,
			},
			{
				Name:      "encrypt",
				Usage:     "Print the ENC[age:...] form of a value",
				ArgsUsage: "[VALUE]",
				Action:    runSecretsEncrypt,
			},
		},
	}
}

func runSecretsInit(_ context.Context, _ *cli.Command) error {
	path := secrets.KeyPath()
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Key already exists at %s\n", path)
		return nil
	}
	if err := secrets.GenerateIdentity(path); err != nil {
		return err
	}
	fmt.Printf("Created %s\n", path)
	return nil
}

func runSecretsSet(_ context.Context, cmd *cli.Command) error {
	name := cmd.Args().Get(0)
	if name == "" {
		return errors.New("usage: arena secrets set <NAME> [VALUE]")
	}

	value, err := secretValue(cmd.Args().Get(1), name)
	if err != nil {
		return err
	}

	if cmd.Bool("encrypt") {
		if value, err = encryptValue(value); err != nil {
			return err
		}
	}

	path := config.DotenvPath()
	if err := secrets.SetEntry(path, name, value); err != nil {
		return err
	}
	fmt.Printf("%s written to %s\n", name, path)
	return nil
}

func runSecretsEncrypt(_ context.Context, cmd *cli.Command) error {
	value, err := secretValue(cmd.Args().First(), "value")
	if err != nil {
		return err
	}
	blob, err := encryptValue(value)
	if err != nil {
		return err
	}
	fmt.Println(blob)
	return nil
}

func encryptValue(value string) (string, error) {
	identity, err := secrets.LoadIdentity(secrets.KeyPath())
	if err != nil {
		return "", fmt.Errorf("%w (run: arena secrets init)", err)
	}
	return secrets.Encrypt(value, identity.Recipient())
}

// secretValue returns arg, or reads the value from stdin without echo when
// stdin is a terminal.
func secretValue(arg, label string) (string, error) {
	if arg != "" {
		return arg, nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprintf(os.Stderr, "%s: ", label)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", label, err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	value := strings.TrimSpace(line)
	if value == "" {
		return "", fmt.Errorf("empty %s", label)
	}
	return value, nil
}
