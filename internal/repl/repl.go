// Package repl implements the interactive recursive-thinking shell.
package repl

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/cort-sh/cort/cort"
)

// Shell is the line-oriented interactive surface. Reserved inputs are exit,
// save, save full, save md, and help; anything else runs a thinking turn.
type Shell struct {
	session      *cort.Session
	responsesDir string
	out          io.Writer
	rl           *readline.Instance

	lastInput  string
	lastResult *cort.TurnResult
}

// Config holds shell configuration.
type Config struct {
	Session      *cort.Session
	ResponsesDir string
	// Out defaults to os.Stdout.
	Out io.Writer
}

// New creates a Shell around a session.
func New(cfg *Config) (*Shell, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("session is required")
	}

	responsesDir := cfg.ResponsesDir
	if responsesDir == "" {
		responsesDir = "responses"
	}

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	return &Shell{
		session:      cfg.Session,
		responsesDir: responsesDir,
		out:          out,
	}, nil
}

// Run starts the interactive loop and blocks until exit or EOF.
func (s *Shell) Run(ctx context.Context) error {
	cyan := color.New(color.FgCyan).SprintFunc()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("You: "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	s.rl = rl

	s.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				s.offerSave()
				fmt.Fprintln(s.out, "\nGoodbye!")
				return nil
			}
			return err
		}

		if err := s.HandleLine(ctx, strings.TrimSpace(line)); err != nil {
			if err == io.EOF {
				s.offerSave()
				fmt.Fprintln(s.out, "Goodbye!")
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(s.out, "%s %v\n", red("Error:"), err)
		}
	}
}

// HandleLine processes one line of input. Reserved inputs are dispatched to
// their handlers; free text runs a thinking turn. io.EOF signals a requested
// exit.
func (s *Shell) HandleLine(ctx context.Context, line string) error {
	switch strings.ToLower(line) {
	case "":
		return nil
	case "exit":
		return io.EOF
	case "help":
		s.printHelp()
		return nil
	case "save":
		path, err := s.session.SaveConversation("")
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Conversation saved to %s\n", path)
		return nil
	case "save full":
		path, err := s.session.SaveFullLog("")
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Full thinking log saved to %s\n", path)
		return nil
	case "save md":
		if s.lastResult == nil {
			fmt.Fprintln(s.out, "No response to save yet.")
			return nil
		}
		path, err := cort.ExportMarkdown(s.responsesDir, s.lastInput, s.lastResult)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Response saved as markdown to %s\n", path)
		return nil
	}

	return s.runTurn(ctx, line)
}

func (s *Shell) runTurn(ctx context.Context, input string) error {
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(s.out, "%s\n", yellow("Thinking recursively..."))

	result := s.session.ThinkAndRespond(ctx, input)
	s.lastInput = input
	s.lastResult = result

	s.printResult(result)

	// Every completed turn is exported automatically; save md re-exports the
	// last one on demand.
	if path, err := cort.ExportMarkdown(s.responsesDir, input, result); err == nil {
		fmt.Fprintf(s.out, "Response saved as markdown to %s\n", path)
	} else {
		fmt.Fprintf(s.out, "Markdown export failed: %v\n", err)
	}
	return nil
}

func (s *Shell) printResult(result *cort.TurnResult) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	rule := strings.Repeat("=", 80)
	fmt.Fprintf(s.out, "\n%s\n%s\n%s\n", rule, green("AI FINAL RESPONSE:"), rule)
	fmt.Fprintln(s.out, result.Response)
	fmt.Fprintf(s.out, "%s\n\n", rule)

	fmt.Fprintln(s.out, "--- COMPLETE THINKING PROCESS ---")
	for _, candidate := range result.ThinkingHistory {
		status := "[ALTERNATIVE]"
		if candidate.Selected {
			status = "[SELECTED]"
		}
		fmt.Fprintf(s.out, "\nRound %d %s:\n", candidate.Round, status)
		fmt.Fprintf(s.out, "  Response: %s\n", candidate.Response)
		if candidate.Selected && candidate.Explanation != "" {
			fmt.Fprintf(s.out, "  Reason for selection: %s\n", candidate.Explanation)
		}
		fmt.Fprintln(s.out, faint(strings.Repeat("-", 50)))
	}
	fmt.Fprintf(s.out, "\n%s\n\n", faint(fmt.Sprintf(
		"rounds=%d model_calls=%d tokens~%d",
		result.ThinkingRounds, result.Stats.ModelCalls, result.Stats.EstimatedTokens)))
}

// offerSave asks whether to save the conversation before the shell exits.
// Nothing to save or an unreadable answer means a silent exit.
func (s *Shell) offerSave() {
	if s.rl == nil || len(s.session.History()) == 0 {
		return
	}

	s.rl.SetPrompt("Save conversation before exiting? (y/n): ")
	line, err := s.rl.Readline()
	if err != nil {
		return
	}

	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "y") {
		path, err := s.session.SaveConversation("")
		if err != nil {
			fmt.Fprintf(s.out, "Save failed: %v\n", err)
			return
		}
		fmt.Fprintf(s.out, "Conversation saved to %s\n", path)
	}
}

func (s *Shell) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(s.out, "\n%s\n", cyan("Recursive Thinking Chat"))
	fmt.Fprintln(s.out, "The AI thinks recursively before each response.")
	fmt.Fprintln(s.out, "Type 'exit' to quit, 'save' to save the conversation,")
	fmt.Fprintln(s.out, "'save full' for the full thinking log, 'save md' for markdown.")
	fmt.Fprintf(s.out, "Responses are auto-saved as markdown to %q.\n\n", s.responsesDir)
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, "Commands:")
	fmt.Fprintln(s.out, "  exit       quit the shell")
	fmt.Fprintln(s.out, "  save       save the conversation as JSON")
	fmt.Fprintln(s.out, "  save full  save the conversation plus the full thinking log")
	fmt.Fprintln(s.out, "  save md    save the last response as markdown")
	fmt.Fprintln(s.out, "  help       show this help")
	fmt.Fprintln(s.out, "Anything else is sent to the model as a new message.")
}
