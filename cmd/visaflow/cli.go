package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// turnProcessor is the conversation surface the CLI drives.
type turnProcessor interface {
	ProcessTurn(ctx context.Context, sessionID, userText string) (string, error)
}

// runCLI reads user messages from stdin and prints assistant replies until
// EOF, "exit", or context cancellation. Each run uses a fresh session.
func runCLI(ctx context.Context, conversation turnProcessor) error {
	sessionID := uuid.NewString()
	fmt.Println("Hello, I am Veazy, VISA Genie! How can I assist you today?")
	fmt.Println("(type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			break
		}
		reply, err := conversation.ProcessTurn(ctx, sessionID, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(reply)
	}
	return scanner.Err()
}
