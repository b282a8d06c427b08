package main

import "github.com/PolarWolf314/kete/cmd"

func main() {
	cmd.Execute()
}
