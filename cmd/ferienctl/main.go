package main

import "github.com/comitanigiacomo/ferienplan-sync/cmd/ferienctl/cmd"

func main() {
	cmd.Execute()
}
