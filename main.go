package main

import "github.com/KaramelBytes/minedash/cmd"

func main() {
	cmd.Execute()
}
