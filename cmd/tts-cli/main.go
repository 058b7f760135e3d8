// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// tts-cli is the line-oriented shell described by §6: it reads verbs from
// stdin, translates them into wire protocol requests, and prints the
// decoded response. Connection is either TCP (-h/-p) or a Unix socket.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/codepr/tts/internal/wire"
)

func main() {
	var host, unixSocket string
	var port int
	flag.StringVar(&host, "h", "127.0.0.1", "Server host (TCP mode)")
	flag.IntVar(&port, "p", 19191, "Server port (TCP mode)")
	flag.StringVar(&unixSocket, "s", "", "Unix socket path (overrides -h/-p)")
	flag.Parse()

	conn, err := dial(host, port, unixSocket)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tts-cli: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	repl(conn)
}

func dial(host string, port int, unixSocket string) (net.Conn, error) {
	if unixSocket != "" {
		return net.Dial("unix", unixSocket)
	}
	return net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
}

func repl(conn net.Conn) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("tts> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print("tts> ")
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}

		if err := runCommand(conn, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		fmt.Print("tts> ")
	}
}

func runCommand(conn net.Conn, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	verb := strings.ToLower(fields[0])
	args := fields[1:]

	var packet wire.Packet
	var err error
	switch verb {
	case "create":
		packet, err = parseCreate(args)
	case "delete":
		packet, err = parseDelete(args)
	case "add":
		packet, err = parseAdd(args)
	case "madd":
		packet, err = parseMAdd(args)
	case "query":
		packet, err = parseQuery(args)
	default:
		return fmt.Errorf("unrecognized verb %q", verb)
	}
	if err != nil {
		return err
	}

	if _, err := conn.Write(wire.Encode(wire.TypeRequest, wire.StatusOK, packet)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return readResponse(conn)
}

func readResponse(conn net.Conn) error {
	buf := make([]byte, 65536)
	n, err := conn.Read(buf)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	header, packet, _, err := wire.Decode(buf[:n])
	if err != nil {
		return err
	}

	switch p := packet.(type) {
	case *wire.Ack:
		fmt.Printf("OK status=%s\n", statusString(header.Status))
	case *wire.QueryResponse:
		for _, row := range p.Rows {
			printRow(row)
		}
		if len(p.Rows) == 0 {
			fmt.Println("(empty)")
		}
	default:
		fmt.Printf("unexpected response opcode %s\n", header.Opcode)
	}
	return nil
}

func printRow(row wire.ResultRow) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d.%09d %g", row.Sec, row.Nsec, row.Value)
	for _, l := range row.Labels {
		fmt.Fprintf(&sb, " %s=%s", l.Name, l.Value)
	}
	fmt.Println(sb.String())
}

func statusString(s wire.Status) string {
	switch s {
	case wire.StatusOK:
		return "OK"
	case wire.StatusNotFound:
		return "NOT_FOUND"
	case wire.StatusUnknownCmd:
		return "UNKNOWN_CMD"
	case wire.StatusOOM:
		return "OOM"
	default:
		return "?"
	}
}
