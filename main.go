package main

import "github.com/hbomb79/Mnemo/cmd"

func main() {
	cmd.Execute()
}
