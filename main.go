package main

import "github.com/ridoystarlord/tablesmith/cmd"

func main() {
	cmd.Execute()
}
