package main

import "community-hub/cmd"

func main() {
	cmd.Execute()
}
