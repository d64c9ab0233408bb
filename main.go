package main

import "github.com/jake-scott/huskoll-bridge/cmd"

func main() {
	cmd.Execute()
}
