package main

import "framepickr/internal/cli"

func main() {
	cli.Execute()
}
