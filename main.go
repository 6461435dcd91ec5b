package main

import "github.com/brightfame/towerctl/cmd"

func main() {
	cmd.Execute()
}
