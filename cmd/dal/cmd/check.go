package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mdwerror "github.com/msto63/dal/foundation/core/error"
	"github.com/msto63/dal/internal/compiler"
)

var checkSkipValidation bool

var checkCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Tokenize, parse and validate programs without executing them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

var tokensCmd = &cobra.Command{
	Use:   "tokens <file>",
	Short: "Print the token stream of a program",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokens,
}

var astCmd = &cobra.Command{
	Use:   "ast <file>",
	Short: "Print the parsed program",
	Args:  cobra.ExactArgs(1),
	RunE:  runAST,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(astCmd)

	checkCmd.Flags().BoolVar(&checkSkipValidation, "no-validate", false, "skip the attribute validator")
	astCmd.Flags().BoolVar(&checkSkipValidation, "no-validate", false, "skip the attribute validator")
}

func newCompiler() (*compiler.Compiler, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, err
	}
	return compiler.New(compiler.Options{
		Logger:         logger,
		CacheSize:      cfg.Engine.CacheSize,
		MaxTokens:      cfg.Engine.MaxTokens,
		MaxDepth:       cfg.Engine.MaxParseDepth,
		SkipValidation: checkSkipValidation,
	})
}

func runCheck(cmd *cobra.Command, args []string) error {
	c, err := newCompiler()
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range args {
		program, err := c.CompileFile(path)
		if err != nil {
			printError(path, err)
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d statements)\n", path, len(program.Statements))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func runTokens(cmd *cobra.Command, args []string) error {
	c, err := newCompiler()
	if err != nil {
		return err
	}
	source, err := readSource(args[0])
	if err != nil {
		return err
	}
	tokens, err := c.Tokenize(source)
	if err != nil {
		return err
	}
	for _, tok := range tokens {
		fmt.Fprintf(cmd.OutOrStdout(), "%4d:%-3d %s\n", tok.Line, tok.Column, tok)
	}
	return nil
}

func runAST(cmd *cobra.Command, args []string) error {
	c, err := newCompiler()
	if err != nil {
		return err
	}
	program, err := c.CompileFile(args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), program.String())
	return nil
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", mdwerror.Wrap(err, "failed to read source file").
			WithCode(mdwerror.CodeNotFound).
			WithDetail("path", path)
	}
	return string(data), nil
}
