package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

func terminalFD(file *os.File) (int, bool) {
	if file == nil {
		return 0, false
	}
	maxIntValue := int(^uint(0) >> 1)
	fileDescriptor := file.Fd()
	if fileDescriptor > uintptr(maxIntValue) {
		return 0, false
	}
	return int(fileDescriptor), true // #nosec G115 -- os.File descriptors fit into int on supported platforms
}

func isTerminal(file *os.File) bool {
	fd, ok := terminalFD(file)
	return ok && term.IsTerminal(fd)
}

func readPassword(file *os.File) ([]byte, error) {
	fd, ok := terminalFD(file)
	if !ok {
		return nil, errors.New("invalid terminal file descriptor")
	}
	return term.ReadPassword(fd)
}

func promptLine(reader *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads without echo on a real terminal and falls back to a
// plain line read when stdin is piped.
func promptPassword(reader *bufio.Reader, label string) (string, error) {
	for {
		fmt.Print(label)

		var passwordInput string
		if isTerminal(os.Stdin) {
			passwordBytes, err := readPassword(os.Stdin)
			fmt.Println()
			if err != nil {
				return "", err
			}
			passwordInput = strings.TrimSpace(string(passwordBytes))
		} else {
			line, err := reader.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return "", err
			}
			passwordInput = strings.TrimSpace(line)
		}

		if passwordInput != "" {
			return passwordInput, nil
		}
		fmt.Println("Value is required.")
	}
}
