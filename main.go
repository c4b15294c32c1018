package main

import "github.com/dzjyyds666/mixconf/cmd"

func main() {
	cmd.Execute()
}
