package main

import "github.com/notargets/parmortar/cmd"

func main() {
	cmd.Execute()
}
