package main

import "github.com/emrgen/exploration/cmd"

func main() {
	cmd.Execute()
}
