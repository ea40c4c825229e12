package cli

import (
	"context"
	"fmt"
	"os"
)

// NeedsKey сообщает, требует ли команда ключ шифрования до запуска.
// Команды без ключа работают только с внешними метаданными записей.
func NeedsKey(command string) bool {
	switch command {
	case "add", "show", "edit", "delete", "sync", "export":
		return true
	}
	return false
}

func (c *Cli) Run(ctx context.Context, command string, args []string) {
	var err error

	switch command {
	case "register":
		err = c.runRegister(ctx)
	case "login":
		err = c.runLogin(ctx)
	case "logout":
		err = c.runLogout(ctx)
	case "status":
		err = c.runStatus(ctx)
	case "add":
		err = c.runAdd(ctx, args)
	case "list":
		err = c.runList(ctx, args)
	case "show":
		err = c.runShow(ctx, args)
	case "edit":
		err = c.runEdit(ctx, args)
	case "delete":
		err = c.runDelete(ctx, args)
	case "sync":
		err = c.runSync(ctx, args)
	case "export":
		err = c.runExport(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		PrintUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
