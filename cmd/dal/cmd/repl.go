package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	mdwerror "github.com/msto63/dal/foundation/core/error"
)

const (
	historyFile = ".dal_history"
	promptMain  = "dal> "
	promptCont  = "...> "
)

const replHelp = `Starts an interactive session. Declarations and top-level bindings
persist between inputs; incomplete input continues on the next line.

Commands:
  :help      show this help
  :services  list declared services
  :agents    list spawned agents
  :events    list emitted events
  :quit      leave the session`

var replCaller string

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	Long:  replHelp,
	Args:  cobra.NoArgs,
	RunE: runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)

	replCmd.Flags().StringVar(&replCaller, "caller", "", "caller identity for @secure calls")
}

func runRepl(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := cmd.OutOrStdout()
	s, err := newSession(ctx, cfg, logger, sessionOptions{
		caller:   replCaller,
		output:   out,
		skipMain: true,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Fprintln(out, "DAL interactive session. Type :help for commands, :quit to exit.")

	for {
		code, ok := readComplete(ln, s, promptMain, promptCont)
		if !ok {
			fmt.Fprintln(out)
			return nil
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if replCommand(out, s, trimmed) {
				return nil
			}
			continue
		}

		program, err := s.compiler.Compile("<repl>", code)
		if err != nil {
			printError("compile", err)
			continue
		}
		v, err := s.engine.Eval(ctx, program)
		if err != nil {
			printError("eval", err)
			continue
		}
		if !v.IsNull() {
			fmt.Fprintln(out, v.String())
		}
	}
}

// replCommand handles a colon command and reports whether to quit
func replCommand(out io.Writer, s *session, command string) bool {
	switch strings.ToLower(command) {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		fmt.Fprintln(out, replHelp)
	case ":services":
		for _, name := range s.engine.Services() {
			fmt.Fprintln(out, name)
		}
	case ":agents":
		for _, info := range s.agents.List() {
			fmt.Fprintf(out, "%s  %s  %s\n", info.ID, info.Name, info.Status)
		}
	case ":events":
		for _, ev := range s.engine.Events() {
			fmt.Fprintf(out, "%s %v\n", ev.Name, ev.Data)
		}
	default:
		fmt.Fprintln(out, "unknown command. Type :help for commands.")
	}
	return false
}

// readComplete reads lines until they form a complete program or a
// definite syntax error. Input that ends inside an open construct keeps
// reading with the continuation prompt.
func readComplete(ln *liner.State, s *session, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			b.Reset()
			continue
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, perr := s.compiler.Parse("<repl>", src); perr != nil && isIncomplete(perr) {
			continue
		}
		return src, true
	}
}

func isIncomplete(err error) bool {
	switch mdwerror.GetCode(err) {
	case mdwerror.CodeUnexpectedEOF, mdwerror.CodeUnterminatedString:
		return true
	}
	return false
}
