package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/manh119/kvengine/internal/wire"
	"github.com/spf13/cobra"
)

var clientAddr string

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Run an interactive demo client against a kvengine server",
	Long: `client connects to a running kvengine server and sends whatever
command lines are typed on stdin, printing each decoded reply — the same
shape as original_source/src/main.rs's run_client/query, generalized from
three hardcoded queries into a read-eval-print loop.`,
	RunE: runClient,
}

func init() {
	clientCmd.Flags().StringVar(&clientAddr, "addr", "127.0.0.1:1234", "server address to connect to")
}

func runClient(cmd *cobra.Command, args []string) error {
	conn, err := net.Dial("tcp", clientAddr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	fmt.Printf("connected to %s\n", clientAddr)

	if len(args) > 0 {
		return query(conn, strings.Join(args, " "))
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := query(conn, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// query sends one request frame and prints its decoded reply, the way
// query() in the source this was distilled from writes a u32_le length
// header followed by the body, then reads back a length-prefixed reply —
// except the reply here is tagged (nil/err/str/int/dbl/arr), not a raw
// string, so it is decoded with wire.Decode instead of printed verbatim.
func query(conn net.Conn, text string) error {
	body := []byte(text)
	if len(body) > wire.MaxMsg {
		return fmt.Errorf("message too long")
	}

	header := make([]byte, 4)
	binary.LittleEndian.PutUint32(header, uint32(len(body)))
	if _, err := conn.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := conn.Write(body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}

	var replyHeader [4]byte
	if _, err := io.ReadFull(conn, replyHeader[:]); err != nil {
		return fmt.Errorf("read reply header: %w", err)
	}
	replyLen := binary.LittleEndian.Uint32(replyHeader[:])
	if replyLen > wire.MaxMsg {
		return fmt.Errorf("reply too long")
	}
	replyBody := make([]byte, replyLen)
	if _, err := io.ReadFull(conn, replyBody); err != nil {
		return fmt.Errorf("read reply body: %w", err)
	}

	v, _, err := wire.Decode(replyBody)
	if err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	fmt.Println(formatValue(v))
	return nil
}

func formatValue(v wire.Value) string {
	switch v.Tag {
	case wire.TagNil:
		return "(nil)"
	case wire.TagErr:
		return "(error) " + v.Str
	case wire.TagStr:
		return v.Str
	case wire.TagInt:
		return fmt.Sprintf("(integer) %d", v.Int)
	case wire.TagDbl:
		return fmt.Sprintf("(double) %g", v.Dbl)
	case wire.TagArr:
		parts := make([]string, len(v.Arr))
		for i, item := range v.Arr {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "(unknown)"
	}
}
