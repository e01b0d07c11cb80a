package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/arena/internal/config"
)

// NewInitCommand returns the onboarding subcommand.
func NewInitCommand() *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "Initialize the arena home directory (~/.arena)",
		Action: runInit,
	}
}

func runInit(_ context.Context, _ *cli.Command) error {
	root := config.ArenaPath()
	created := false

	dirs := []string{
		root,
		filepath.Join(root, "logs"),
		filepath.Join(root, "sessions"),
	}
	for _, d := range dirs {
		if _, err := os.Stat(d); err != nil {
			if err := os.MkdirAll(d, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", d, err)
			}
			fmt.Printf("  Created %s\n", d)
			created = true
		}
	}

	configPath := config.ConfigPath()
	if _, err := os.Stat(configPath); err != nil {
		if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("  Created %s\n", configPath)
		created = true
	}

	dotenvPath := config.DotenvPath()
	if _, err := os.Stat(dotenvPath); err != nil {
		if err := os.WriteFile(dotenvPath, []byte(defaultDotenv), 0o600); err != nil {
			return fmt.Errorf("write .env: %w", err)
		}
		fmt.Printf("  Created %s\n", dotenvPath)
		created = true
	}

	if !created {
		fmt.Printf("%s is already set up. Nothing to do.\n", root)
		return nil
	}

	fmt.Println(initMessage(root))
	return nil
}

const defaultConfig = `{
	// arena configuration

	"models": {
		"default": "claude",
		"providers": {
			"claude": {
				"driver": "anthropic",
				"model": "claude-sonnet-4-20250514",
				"models": ["claude-3-5-haiku-latest"],
				"max_tokens": 4096
			},
			"openai": {
				"driver": "openai",
				"model": "gpt-4o",
				"models": ["gpt-4o-mini"],
				"max_tokens": 4096
			}

			// Local model via Ollama (no auth required)
			// "local": {
			// 	"driver": "ollama",
			// 	"model": "llama3.1:8b",
			// 	"base_url": "http://localhost:11434"
			// }
		}
	},

	"vs": {
		// models compared by ".vs" with no arguments
		"models": ["claude", "openai"]
	},

	"sessions": {
		"driver": "file"
	},

	"render": {
		"style": "auto"
	},

	"events": {
		"buffer_size": 256,
		"log_level": "warn"
	},

	"agent": {
		"system_prompt": ""
	}
}
`

const defaultDotenv = `# arena environment variables
# This file is loaded automatically. Existing env vars are never overridden.
# Values may be age-encrypted with "arena secrets set --encrypt".

# ANTHROPIC_API_KEY=sk-ant-...
# OPENAI_API_KEY=sk-...
# MISTRAL_API_KEY=...
# GEMINI_API_KEY=...
`

func initMessage(root string) string {
	return fmt.Sprintf(`
  arena is set up at %s

  Next steps:
    1. Drop your API keys in %s/.env
    2. Adjust %s/config.jsonc
    3. Run: arena repl --vs claude,openai
`, root, root, root)
}
