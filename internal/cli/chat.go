// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/lumenlabs/lumen-tui/internal/attachment"
	"github.com/lumenlabs/lumen-tui/internal/completion"
	"github.com/lumenlabs/lumen-tui/internal/config"
	"github.com/lumenlabs/lumen-tui/internal/model"
	"github.com/lumenlabs/lumen-tui/internal/reconciler"
	"github.com/lumenlabs/lumen-tui/internal/store"
)

// chatCmd is the plain-terminal REPL, for terminals and workflows where
// the full-screen interface is unwanted.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat REPL",
	Long: `Start a line-based chat session.

Interactive commands:
  /model [id]     show or switch the model
  /attach <path>  attach a file to the next message
  /detach [n]     remove the nth attachment (default: last)
  /edit <text>    replay the last turn with a rewritten prompt
  /undo           remove the last turn
  /clear          start a new conversation
  /quit           exit (also Ctrl+D)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runREPL(cmd.Context(), cfg)
	},
}

// repl holds the line editor with persistent history.
type repl struct {
	line        *liner.State
	historyFile string
}

func newREPL() *repl {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &repl{
		line:        line,
		historyFile: filepath.Join(config.Dir(), "chat_history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *repl) close() {
	if f, err := os.Create(r.historyFile); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	}
	r.line.Close()
}

func runREPL(ctx context.Context, cfg *config.Config) error {
	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()
	mgr := attachment.NewManager(db)

	s := store.New(model.NewConversation(cfg.Settings()))
	client := completion.NewClient(&completion.ClientConfig{
		BaseURL: cfg.Backend.BaseURL,
		APIKey:  cfg.Backend.APIKey,
	})

	hooks := reconciler.Hooks{
		OnNotice: func(text string) {
			fmt.Fprintln(os.Stderr, text)
		},
		OnAuthExpired: func() {
			fmt.Fprintln(os.Stderr, "session expired - sign in again to continue")
		},
	}
	rec := reconciler.New(s, client, hooks, nil)

	r := newREPL()
	defer r.close()

	fmt.Printf("lumen chat (%s) - /quit to exit\n", cfg.DefaultModel)

	for {
		input, err := r.line.Prompt("> ")
		if err != nil {
			// liner returns ErrPromptAborted on Ctrl+C and io.EOF on Ctrl+D.
			fmt.Println()
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			stream := func(start func()) { streamReply(s, rec, start) }
			if quit := handleReplCommand(ctx, input, s, rec, mgr, stream); quit {
				return nil
			}
			continue
		}

		streamTurn(s, rec, input)
	}
}

// streamTurn sends a prompt and prints the response as it streams.
func streamTurn(s *store.Store, rec *reconciler.Reconciler, prompt string) {
	streamReply(s, rec, func() { rec.Send(prompt) })
}

// streamReply runs start, which must kick off a stream session, and
// prints the assistant's reply as it arrives.
func streamReply(s *store.Store, rec *reconciler.Reconciler, start func()) {
	var printed int
	unsubscribe := s.Subscribe(func(c model.Conversation) {
		msg, _, ok := c.LastAssistantMessage()
		if !ok || !msg.Loading {
			return
		}
		text := msg.Text()
		if len(text) > printed {
			fmt.Print(text[printed:])
			printed = len(text)
		}
	})

	start()
	rec.Wait()
	unsubscribe()

	conv := s.Read()
	if msg, _, ok := conv.LastAssistantMessage(); ok {
		// Replay highlighted code blocks once the text is final.
		if blocks := fencedBlocks(msg.Text()); len(blocks) > 0 {
			fmt.Println()
			for _, b := range blocks {
				fmt.Println(highlightCode(b.code, b.lang))
			}
		}
		if msg.Error != "" {
			fmt.Fprintln(os.Stderr, "error:", msg.Error)
		}
	}
	fmt.Println()
}

func handleReplCommand(ctx context.Context, input string, s *store.Store, rec *reconciler.Reconciler, mgr *attachment.Manager, stream func(start func())) (quit bool) {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/q":
		return true
	case "/edit":
		text := strings.TrimSpace(strings.TrimPrefix(input, "/edit"))
		if text == "" {
			fmt.Println("usage: /edit <text>")
			break
		}
		idxs := s.Read().UserTurnIndices()
		if len(idxs) == 0 {
			fmt.Println("no turn to edit")
			break
		}
		idx := idxs[len(idxs)-1]
		stream(func() { rec.EditResend(idx, text) })
	case "/undo":
		rec.Undo()
		fmt.Println("last turn removed")
	case "/clear":
		conv := s.Read()
		s.Update(store.Replace(model.NewConversation(conv.Settings)))
		fmt.Println("conversation cleared")
	case "/model":
		if len(fields) > 1 {
			s.Update(store.SetModel(fields[1]))
			fmt.Println("model set to", fields[1])
		} else {
			fmt.Println("model:", s.Read().Settings.Model)
		}
	case "/attach":
		if len(fields) < 2 {
			fmt.Println("usage: /attach <path>")
			break
		}
		block, err := mgr.Attach(ctx, fields[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "attach failed:", err)
			break
		}
		s.Update(store.AttachToPending(block))
		fmt.Printf("attached %s (%s)\n", block.Name, block.Kind)
	case "/detach":
		pending, ok := s.Read().PendingUserMessage()
		if !ok || len(pending.Attachments()) == 0 {
			fmt.Println("nothing attached")
			break
		}
		pos := len(pending.Attachments()) - 1
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 1 || n > len(pending.Attachments()) {
				fmt.Println("usage: /detach [n]")
				break
			}
			pos = n - 1
		}
		s.Update(store.DetachFromPending(pos))
		fmt.Println("detached")
	default:
		fmt.Println("unknown command:", fields[0])
	}
	return false
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

type fenced struct {
	lang string
	code string
}

// fencedBlocks extracts ```lang fenced code blocks from markdown text.
func fencedBlocks(text string) []fenced {
	var out []fenced
	lines := strings.Split(text, "\n")
	var cur *fenced
	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			if cur == nil {
				cur = &fenced{lang: strings.TrimSpace(strings.TrimPrefix(line, "```"))}
			} else {
				out = append(out, *cur)
				cur = nil
			}
			continue
		}
		if cur != nil {
			cur.code += line + "\n"
		}
	}
	return out
}

// highlightCode renders code with ANSI colors for the terminal.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}
