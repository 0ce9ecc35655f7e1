package main

import "files-kraken/cmd"

func main() {
	cmd.Execute()
}
