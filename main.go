package main

import "babelbeam/cli"

func main() {
	cli.Execute()
}
