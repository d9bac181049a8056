package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gobmc/host/client"
	"gobmc/protocol"
)

var protocolRequired = protocol.NewProtocolVersion(1, 0, 0)

var regsCmd = &cobra.Command{
	Use:   "regs",
	Short: "List the register map",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printRegisters(cmd.OutOrStdout())
		return nil
	},
}

var readCmd = &cobra.Command{
	Use:   "read <register> [length]",
	Short: "Read a register by name or address",
	Long: `Read a register by name (e.g. SystemTemperature) or address (e.g. 0x21).

Fixed-width registers are always read at their full width. FIFO registers
drain up to length bytes, their capacity by default.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closer, err := connect()
		if err != nil {
			return err
		}
		defer closer.Close()
		return readRegister(c, cmd.OutOrStdout(), args)
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <register> <byte>...",
	Short: "Write hex bytes to a register",
	Long: `Write bytes given in hex to a register. A single byte is sent as a short
write, anything longer as a long write. Multi-byte registers are little
endian, so writing 00 C2 01 00 to UartBaudRate selects 115200 baud.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closer, err := connect()
		if err != nil {
			return err
		}
		defer closer.Close()
		return writeRegister(c, cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(regsCmd, readCmd, writeCmd)
}

func printRegisters(out io.Writer) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADDR\tNAME\tLEN\tACCESS\tDESCRIPTION")
	for _, r := range protocol.Registers() {
		fmt.Fprintf(w, "0x%02X\t%s\t%d\t%s\t%s\n", r.Address, r.Name, r.Len, r.Access, r.Description)
	}
	w.Flush()
}

// parseRegister accepts a register name or a numeric address
func parseRegister(arg string) (protocol.RegisterInfo, error) {
	if r, ok := protocol.LookupRegisterByName(arg); ok {
		return r, nil
	}
	n, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		return protocol.RegisterInfo{}, fmt.Errorf("unknown register %q", arg)
	}
	r, ok := protocol.LookupRegister(uint8(n))
	if !ok {
		return protocol.RegisterInfo{}, fmt.Errorf("no register at 0x%02X", n)
	}
	return r, nil
}

func parseBytes(args []string) ([]byte, error) {
	data := make([]byte, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseUint(strings.TrimPrefix(a, "0x"), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("bad byte %q: %w", a, err)
		}
		data = append(data, byte(v))
	}
	return data, nil
}

func readRegister(c *client.Client, out io.Writer, args []string) error {
	r, err := parseRegister(args[0])
	if err != nil {
		return err
	}

	var data []byte
	if r.IsFIFO() {
		n := r.Len
		if len(args) > 1 {
			v, err := strconv.ParseUint(args[1], 0, 8)
			if err != nil || v == 0 || v > uint64(r.Len) {
				return fmt.Errorf("length must be 1..%d", r.Len)
			}
			n = uint8(v)
		}
		data, err = c.ReadFIFO(r.Address, n)
	} else {
		data, err = c.Read(r.Address, r.Len)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s (0x%02X): % X\n", r.Name, r.Address, data)
	return nil
}

func writeRegister(c *client.Client, out io.Writer, args []string) error {
	r, err := parseRegister(args[0])
	if err != nil {
		return err
	}
	data, err := parseBytes(args[1:])
	if err != nil {
		return err
	}
	if err := c.Write(r.Address, data); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (0x%02X): wrote %d byte(s)\n", r.Name, r.Address, len(data))
	return nil
}
