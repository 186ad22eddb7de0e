package main

import "hypercase/cmd/client/cmd"

func main() {
	cmd.Execute()
}
