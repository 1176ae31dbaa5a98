package main

import "sysmon/cmd"

func main() {
	cmd.Execute()
}
