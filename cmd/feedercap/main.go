package main

import "github.com/ohowland/feedercap/cmd/feedercap/cmd"

func main() {
	cmd.Execute()
}
