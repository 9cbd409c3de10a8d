// The main package for the floormon executable.
package main

import (
	"github.com/a3cim/floormon/cmd"
)

func main() {
	cmd.Execute()
}
