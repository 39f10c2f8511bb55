package main

import "github.com/sergev/thomfdc/cmd"

func main() {
	cmd.Execute()
}
