package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"gobmc/host/client"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive register console",
	Long: "Interactive register console. On a terminal it offers line editing and " +
		"history; otherwise it runs one command per input line.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closer, err := connect()
		if err != nil {
			return err
		}
		defer closer.Close()

		if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			runInteractive(c)
			return nil
		}
		return runShell(c, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

// shellCommand is one console command shared by both console front ends
type shellCommand struct {
	name    string
	usage   string
	help    string
	minArgs int
	maxArgs int // -1 for no limit
	run     func(c *client.Client, out io.Writer, args []string) error
}

var shellCommands = []shellCommand{
	{"regs", "regs", "List the register map", 0, 0,
		func(_ *client.Client, out io.Writer, _ []string) error {
			printRegisters(out)
			return nil
		}},
	{"version", "version", "Show protocol and firmware versions", 0, 0,
		func(c *client.Client, out io.Writer, _ []string) error {
			return printVersion(c, out)
		}},
	{"status", "status", "Show power, buttons and sensors", 0, 0,
		func(c *client.Client, out io.Writer, _ []string) error {
			return printStatus(c, out)
		}},
	{"read", "read <reg> [len]", "Read a register", 1, 2, readRegister},
	{"write", "write <reg> <byte>...", "Write hex bytes to a register", 2, -1, writeRegister},
	{"power", "power <on|off>", "Switch the host DC supply", 1, 1,
		func(c *client.Client, out io.Writer, args []string) error {
			return setPower(c, out, args[0])
		}},
}

func lookupShellCommand(name string) (shellCommand, bool) {
	for _, sc := range shellCommands {
		if sc.name == name {
			return sc, true
		}
	}
	return shellCommand{}, false
}

func (sc shellCommand) exec(c *client.Client, out io.Writer, args []string) error {
	if len(args) < sc.minArgs || (sc.maxArgs >= 0 && len(args) > sc.maxArgs) {
		return fmt.Errorf("usage: %s", sc.usage)
	}
	return sc.run(c, out, args)
}

// runInteractive runs the line-editing console until the user exits
func runInteractive(c *client.Client) {
	sh := ishell.New()
	sh.SetPrompt("bmc> ")
	sh.Println("BMC register console, 'help' lists commands")

	for _, sc := range shellCommands {
		sh.AddCmd(&ishell.Cmd{
			Name: sc.name,
			Help: sc.help,
			Func: func(ctx *ishell.Context) {
				var buf bytes.Buffer
				if err := sc.exec(c, &buf, ctx.Args); err != nil {
					ctx.Err(err)
					return
				}
				ctx.Print(buf.String())
			},
		})
	}
	sh.Run()
	sh.Close()
}

// runShell executes one command per line of in until EOF or quit
func runShell(c *client.Client, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			printShellHelp(out)
			continue
		}

		sc, ok := lookupShellCommand(parts[0])
		if !ok {
			fmt.Fprintf(out, "Unknown command: %s (type 'help' for available commands)\n", parts[0])
			continue
		}
		if err := sc.exec(c, out, parts[1:]); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

func printShellHelp(out io.Writer) {
	fmt.Fprintln(out, "\nAvailable commands:")
	fmt.Fprintf(out, "  %-24s - %s\n", "help", "Show this help message")
	for _, sc := range shellCommands {
		fmt.Fprintf(out, "  %-24s - %s\n", sc.usage, sc.help)
	}
	fmt.Fprintf(out, "  %-24s - %s\n", "quit/exit/q", "Exit")
	fmt.Fprintln(out)
}
