// Command cgtax computes FIFO capital-gains tax reports from
// cryptocurrency trade exports.
package main

import "github.com/sklarsa/crypto-gains-engine/cli"

func main() {
	cli.Execute()
}
