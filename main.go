package main

import "github.com/twiced-technology-gmbh/taskmon/cmd"

func main() {
	cmd.Execute()
}
