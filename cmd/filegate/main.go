// Command filegate serves a flat file repository to a bounded number of
// TCP clients over a line-oriented protocol.
package main

import "github.com/Sentinel-Gate/filegate/cmd/filegate/cmd"

func main() {
	cmd.Execute()
}
