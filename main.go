package main

import "github.com/simpleheberg/simplebackup/cmd"

func main() {
	cmd.Execute()
}
