package main

import (
	_ "latke.GO/custom"

	"latke.GO/cmd"
	"latke.GO/config"
)

func main() {
	config.LoadEnv()
	cmd.Execute()
}
