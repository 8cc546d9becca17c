package main

import "github.com/segpull/segpull/cmd"

func main() {
	cmd.Execute()
}
