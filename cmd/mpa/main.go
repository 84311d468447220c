package main

import "github.com/OpenTraceLab/OpenTraceMeasure/cmd/mpa/cmd"

func main() {
	cmd.Execute()
}
