package main

import "github.com/anonto42/socialfeed/backend/cmd/server/commands"

func main() {
	commands.Execute()
}
