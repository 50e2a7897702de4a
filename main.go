package main

import "github.com/nextlevelbuilder/clawai/cmd"

func main() {
	cmd.Execute()
}
