package main

import "github.com/veyra-chat/veyra/cmd"

func main() {
	cmd.Execute()
}
