// podlock builds the version-locking graph a CocoaPods resolver starts from.
package main

import (
	"github.com/anthr76/podlock/cmd/podlock/cmd"
)

func main() {
	cmd.Execute()
}
