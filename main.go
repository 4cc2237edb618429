package main

import "github.com/jmehdipour/shift-scheduler/cmd"

func main() {
	cmd.Execute()
}
