// Package main is the entry point of the kestrel command.
//
// Applications link their conventions into this binary by importing the
// package that registers them; see examples/hello.
package main

import (
	"kestrel/cmd"
)

func main() {
	cmd.Execute("kestrel", "")
}
