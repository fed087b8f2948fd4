package main

import "props-bible/cli"

func main() {
	cli.Run()
}
