// Package main is the electionguide executable.
package main

import "github.com/JakeFAU/wi-election-guide/cmd"

func main() {
	cmd.Execute()
}
