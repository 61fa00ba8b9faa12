package main

import "github.com/slackmgr/dynadoc/internal/cli"

func main() {
	cli.Execute()
}
