package main

import "github.com/kiesman99/embiggen/cmd"

func main() {
	cmd.Execute()
}
