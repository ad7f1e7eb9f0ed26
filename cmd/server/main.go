package main

import "go-journal-app/cmd/server/cmd"

func main() {
	cmd.Execute()
}
