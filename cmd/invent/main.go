package main

import "github.com/inventhq/invent/internal/cli/cmd"

func main() {
	cmd.Execute()
}
