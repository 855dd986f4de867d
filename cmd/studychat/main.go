// Command studychat is an interactive terminal shell for the study assistant.
// It runs the same chat core as the HTTP server against the configured store
// and completion provider. Type "quit" to exit and "clear" to reset history.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fasihullahsaeed729-wq/study-bot/internal/app"
	"github.com/fasihullahsaeed729-wq/study-bot/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	built, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("build failed: %v", err)
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			log.Printf("cleanup error: %v", err)
		}
	}()

	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Println("Study Bot with memory. Type 'quit' to exit, 'clear' to reset your history.")
	fmt.Print("Enter your name (for personalized memory): ")
	if !in.Scan() {
		return
	}
	userID := strings.TrimSpace(in.Text())
	if userID == "" {
		userID = "anonymous_user"
	}

	for {
		fmt.Printf("\n%s: ", userID)
		if !in.Scan() {
			break
		}
		line := in.Text()

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "quit":
			return
		case "clear":
			count, err := built.Chat.Clear(ctx, userID)
			if err != nil {
				fmt.Printf("clear failed: %v\n", err)
				continue
			}
			fmt.Printf("Cleared %d messages from your history\n", count)
			continue
		}

		result, err := built.Chat.HandleTurn(ctx, userID, line, false)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Printf("\nStudy Bot: %s\n", result.Answer)
	}

	if err := in.Err(); err != nil {
		log.Fatalf("read input: %v", err)
	}
}
