package main

import "mediadeck/cmd"

func main() {
	cmd.Execute()
}
