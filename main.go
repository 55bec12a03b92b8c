package main

import "github.com/naka-gawa/pr-module-map/cmd"

func main() {
	cmd.Execute()
}
