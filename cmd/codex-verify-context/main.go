package main

import "codex-resume/internal/cli"

func main() {
	cli.Main(cli.NewVerifyCommand)
}
