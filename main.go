package main

import "ledger-sync/cmd"

func main() {
	cmd.Execute()
}
