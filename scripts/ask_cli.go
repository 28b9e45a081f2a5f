package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"promptgate/internal/config"
	"promptgate/internal/domain"
	"promptgate/internal/domain/models"
	"promptgate/internal/domain/services"
	"promptgate/internal/server"
	serviceLLM "promptgate/internal/service/llm"
	"promptgate/internal/service/prompt"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// CLI drives the gateway's services in-process for one session, skipping the
// HTTP gates (bot check and rate limit)
type CLI struct {
	ctx       context.Context
	app       *server.App
	scanner   *bufio.Scanner
	sessionID string
	logger    *slog.Logger
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	// Info level keeps the console readable
	cfg.Environment = "cli"
	logger, logFile, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Printf("%s❌ Failed to setup logger: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	defer logFile.Close()

	generator, err := serviceLLM.SetupGenerator(cfg, logger)
	if err != nil {
		fmt.Printf("%s❌ Failed to setup generation backend: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}

	app, err := server.Setup(cfg, generator, logger)
	if err != nil {
		fmt.Printf("%s❌ Failed to setup services: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}

	sessionID := os.Getenv("CLI_SESSION_ID")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	cli := &CLI{
		ctx:       context.Background(),
		app:       app,
		scanner:   bufio.NewScanner(os.Stdin),
		sessionID: sessionID,
		logger:    logger,
	}
	cli.run()
}

func (cli *CLI) run() {
	fmt.Printf("\n%s╔══════════════════════════════════════╗%s\n", colorCyan, colorReset)
	fmt.Printf("%s║        Prompt Gateway Test CLI       ║%s\n", colorCyan, colorReset)
	fmt.Printf("%s╚══════════════════════════════════════╝%s\n", colorCyan, colorReset)
	fmt.Printf("%sSession: %s%s\n", colorBlue, cli.sessionID, colorReset)

	for {
		fmt.Println("\n" + strings.Repeat("─", 40))
		fmt.Println("Main Menu:")
		fmt.Println("1. Ask a question")
		fmt.Println("2. Follow up")
		fmt.Println("3. Confirm payment")
		fmt.Println("4. Confirm next payment round")
		fmt.Println("5. Show session")
		fmt.Println("6. Exit")
		fmt.Print("\nSelect option (1-6): ")

		choice := cli.readLine()
		fmt.Println()

		switch choice {
		case "1":
			cli.askFlow(false)
		case "2":
			cli.askFlow(true)
		case "3":
			cli.confirm(cli.app.Quota.ConfirmFirstPayment)
		case "4":
			cli.confirm(cli.app.Quota.ConfirmSecondRoundPayment)
		case "5":
			cli.showSession()
		case "6", "":
			fmt.Printf("%s✓ Goodbye!%s\n", colorGreen, colorReset)
			return
		default:
			fmt.Printf("%s⚠ Invalid choice. Please enter 1-6.%s\n", colorYellow, colorReset)
		}
	}
}

func (cli *CLI) askFlow(followUp bool) {
	fmt.Print("Your prompt: ")
	text := cli.readLine()

	fmt.Printf("Action (blank, %s or custom:<instruction>): ", strings.Join(cli.actions(), ", "))
	action := cli.readLine()

	fmt.Printf("%s⏳ Waiting for response...%s\n", colorBlue, colorReset)
	resp, err := cli.app.Ask.Ask(cli.ctx, &services.AskRequest{
		SessionID: cli.sessionID,
		Prompt:    text,
		Action:    action,
		Identity:  cli.sessionID,
		FollowUp:  followUp,
	})
	if err != nil {
		cli.printError(err)
		return
	}

	if resp.Locked() {
		fmt.Printf("%s🔒 %s (%s)%s\n", colorYellow, resp.Message, resp.Status, colorReset)
		if resp.CallToAction != nil {
			fmt.Printf("%s   %s → round %d %s%s\n", colorYellow,
				resp.CallToAction.Label, resp.CallToAction.PaymentRound, resp.CallToAction.URL, colorReset)
		}
		return
	}

	fmt.Printf("\n%s%s%s\n", colorGreen, resp.Response, colorReset)
	for i, s := range resp.Suggestions {
		fmt.Printf("%s  [%d] %s → %s%s\n", colorCyan, i+1, s.Label, s.Action, colorReset)
	}
}

func (cli *CLI) confirm(fn func(context.Context, string) (*models.Session, error)) {
	sess, err := fn(cli.ctx, cli.sessionID)
	if err != nil {
		cli.printError(err)
		return
	}
	fmt.Printf("%s✓ Payment round %d open%s\n", colorGreen, sess.CurrentPaymentRound, colorReset)
}

func (cli *CLI) showSession() {
	st, err := cli.app.Quota.Status(cli.ctx, cli.sessionID)
	if err != nil {
		cli.printError(err)
		return
	}
	fmt.Printf("State:          %s\n", st.State)
	fmt.Printf("Free used:      %d\n", st.FreeQueriesUsed)
	fmt.Printf("Paid:           %v (round %d, %d used)\n", st.PaymentConfirmed, st.CurrentPaymentRound, st.PaidQueryCount)
}

func (cli *CLI) actions() []string {
	return []string{prompt.ActionRephrase, prompt.ActionPersonalize, prompt.ActionShakespeare}
}

func (cli *CLI) printError(err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		fmt.Printf("%s⚠ No session yet. Ask something first.%s\n", colorYellow, colorReset)
	case errors.Is(err, domain.ErrValidation):
		fmt.Printf("%s⚠ %v%s\n", colorYellow, err, colorReset)
	default:
		cli.logger.Error("cli request failed", "session_id", cli.sessionID, "error", err)
		fmt.Printf("%s❌ Error: %v%s\n", colorRed, err, colorReset)
	}
}

func (cli *CLI) readLine() string {
	if !cli.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(cli.scanner.Text())
}
