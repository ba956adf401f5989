package main

import "github.com/josephlewis42/subproc/cmd"

func main() {
	cmd.Execute()
}
