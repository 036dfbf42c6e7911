package main

import "github.com/producthunt/apiserver/cmd"

func main() {
	cmd.Execute()
}
