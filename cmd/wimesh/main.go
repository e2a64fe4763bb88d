package main

import (
	"wimesh/cmd/wimesh/commands"
	"wimesh/lib/osutil"
)

func main() {
	commands.ExecuteContext(osutil.SignalContext())
}
