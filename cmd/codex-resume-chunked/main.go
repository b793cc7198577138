package main

import (
	"codex-resume/internal/cli"

	"github.com/spf13/cobra"
)

func main() {
	cli.Main(func(env cli.Env) *cobra.Command {
		return cli.NewResumeCommand(cli.Chunked, env)
	})
}
