package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"nextbot/internal/ipc"
)

const usage = `usage: nextbot-ctl [--socket path] <command> [arg]

commands:
  say <text>              submit a typed utterance
  mic                     toggle the microphone
  clear                   clear the chat transcript
  lang <EN|ES|FR|DE>      switch the assistant language
  task-toggle <index>     flip a task's done flag
  task-delete <index>     delete a task
  reminder-delete <id>    delete a reminder
  transcribe-file <path>  transcribe an audio file and submit it`

func main() {
	socket := cli.StringP("socket", "s", ipc.SocketPath, "Control socket path")
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		fmt.Println(usage)
		os.Exit(2)
	}

	cmd := args[0]
	arg := ""
	if len(args) > 1 {
		arg = args[1]
	}

	if err := ipc.Send(*socket, cmd, arg); err != nil {
		fmt.Println("nextbot not running:", err)
		os.Exit(1)
	}
}
