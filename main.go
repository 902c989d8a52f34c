// The main package for the shelfscout executable.
package main

import (
	"github.com/shelfscout/shelfscout/cmd"
)

func main() {
	cmd.Execute()
}
