package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Yassen717/Chatly/internal/ai"
	"github.com/Yassen717/Chatly/internal/chat"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "chatly",
	Short: "Chatly is an AI chat assistant for your terminal",
	Long: `Chatly keeps titled, persistent conversations with an AI assistant.
Without an API key it runs against a built-in offline responder, so it
is usable out of the box.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(debug)
		if err != nil {
			return err
		}
		defer app.shutdown()
		return runChat(app)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd)
}

// runChat is the interactive loop. Lines starting with "/" are
// commands; everything else is sent to the assistant.
func runChat(app *appContext) error {
	fmt.Println("Chatly — type a message, /help for commands, /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		prompt(app)
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(app, line); quit {
				return nil
			}
			continue
		}

		sendChat(app, line)
	}
}

func prompt(app *appContext) {
	if id := app.store.ActiveConversation(); id != "" {
		if conv, ok := app.store.Conversation(id); ok {
			fmt.Printf("[%s] > ", conv.Title)
			return
		}
	}
	fmt.Print("> ")
}

func sendChat(app *appContext, text string) {
	var printed int
	_, err := app.orchestrator.SendMessage(context.Background(), app.store.ActiveConversation(), text, ai.SendOptions{
		OnChunk: func(accumulated string) {
			// Print only the new tail of the accumulated text.
			fmt.Print(accumulated[printed:])
			printed = len(accumulated)
		},
		OnComplete: func(msg chat.Message) {
			if printed == 0 {
				fmt.Print(msg.Text)
			}
			fmt.Println()
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
}

func runCommand(app *appContext, line string) (quit bool) {
	fields := strings.Fields(line)
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		printHelp()
	case "/new":
		app.store.CreateConversation(arg, "")
		fmt.Println("Started a new conversation.")
	case "/list":
		listConversations(app)
	case "/switch":
		switchConversation(app, arg)
	case "/title":
		if arg == "" {
			fmt.Println("Usage: /title <new title>")
			break
		}
		app.store.UpdateConversationTitle(app.store.ActiveConversation(), arg)
	case "/pin":
		app.store.TogglePinConversation(app.store.ActiveConversation())
	case "/search":
		searchConversations(app, arg)
	case "/delete":
		id := app.store.ActiveConversation()
		if id == "" {
			fmt.Println("No active conversation.")
			break
		}
		app.store.DeleteConversation(id)
		fmt.Println("Conversation deleted.")
	default:
		fmt.Printf("Unknown command %s — try /help.\n", fields[0])
	}
	return false
}

func printHelp() {
	fmt.Print(`Commands:
  /new [title]     start a new conversation
  /list            list conversations
  /switch <n>      switch to conversation n from /list
  /title <text>    rename the active conversation
  /pin             toggle pin on the active conversation
  /search <text>   search conversations
  /delete          delete the active conversation
  /quit            exit
`)
}

func listConversations(app *appContext) {
	conversations := app.store.Conversations()
	if len(conversations) == 0 {
		fmt.Println("No conversations yet.")
		return
	}
	active := app.store.ActiveConversation()
	for i, conv := range conversations {
		marker := " "
		if conv.ID == active {
			marker = "*"
		}
		pin := ""
		if conv.IsPinned {
			pin = " [pinned]"
		}
		fmt.Printf("%s %2d. %s (%d messages)%s\n", marker, i+1, conv.Title, len(conv.Messages), pin)
	}
}

func switchConversation(app *appContext, arg string) {
	n, err := strconv.Atoi(arg)
	conversations := app.store.Conversations()
	if err != nil || n < 1 || n > len(conversations) {
		fmt.Println("Usage: /switch <n> (see /list)")
		return
	}
	app.store.SetActiveConversation(conversations[n-1].ID)
}

func searchConversations(app *appContext, query string) {
	matches := app.store.SearchConversations(query)
	if len(matches) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, conv := range matches {
		fmt.Printf("  %s (%d messages)\n", conv.Title, len(conv.Messages))
	}
}
