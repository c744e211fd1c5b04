package main

import "github.com/pawops/paw-wizard/cmd"

func main() {
	cmd.Execute()
}
