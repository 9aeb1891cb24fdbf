// Command riverpool-demo wires a configured ConnectionManager into a
// riverpool pool and exercises it end to end.
package main

import "github.com/riverpool/riverpool/cmd/riverpool-demo/cli"

var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.Execute()
}
