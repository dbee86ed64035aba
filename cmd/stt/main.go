package main

import (
	"whisper-stt/cmd/stt/cmd"
)

func main() {
	cmd.Execute()
}
