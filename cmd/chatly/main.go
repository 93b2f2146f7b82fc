package main

import (
	"github.com/Yassen717/Chatly/cmd/chatly/cmd"
)

func main() {
	cmd.Execute()
}
