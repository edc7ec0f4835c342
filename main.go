package main

import "github.com/vibast-solutions/ms-go-escrow/cmd"

func main() {
	cmd.Execute()
}
