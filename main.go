package main

import "github.com/rjmcmc/rjmcmc/cmd"

func main() {
	cmd.Execute()
}
