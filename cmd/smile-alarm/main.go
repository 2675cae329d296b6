package main

import "github.com/oshokin/smile-alarm/cmd/smile-alarm/cmd"

func main() {
	cmd.Execute()
}
