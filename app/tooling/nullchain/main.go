// This program is the command line front end for the chain: it emits and
// mines blocks, inspects a local chain database and manages wallet keys.
package main

import (
	"os"

	"github.com/ardanlabs/nullchain/app/tooling/nullchain/cmd"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {
	if err := cmd.Execute(cmd.New(build)); err != nil {
		os.Exit(1)
	}
}
