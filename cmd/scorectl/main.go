package main

import "vitality-score/internal/cli"

func main() {
	cli.Execute()
}
