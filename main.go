package main

import "github.com/frahmantamala/herasat/cmd"

func main() {
	cmd.Execute()
}
