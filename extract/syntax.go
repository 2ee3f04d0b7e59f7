package extract

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

// grammar couples a tree-sitter language with the snippet file extension.
type grammar struct {
	language *sitter.Language
	ext      string
}

// grammars maps fence info strings to checkable languages. Languages
// outside this table are written out without a syntax check.
var grammars = map[string]grammar{
	"go":         {golang.GetLanguage(), ".go"},
	"golang":     {golang.GetLanguage(), ".go"},
	"python":     {python.GetLanguage(), ".py"},
	"py":         {python.GetLanguage(), ".py"},
	"javascript": {javascript.GetLanguage(), ".js"},
	"js":         {javascript.GetLanguage(), ".js"},
}

// extensionFor returns the snippet file extension for a fence language.
func extensionFor(language string) string {
	if g, ok := grammars[strings.ToLower(language)]; ok {
		return g.ext
	}
	return ".txt"
}

// checkable reports whether a fence language has a registered grammar.
func checkable(language string) bool {
	_, ok := grammars[strings.ToLower(language)]
	return ok
}

// checkSyntax parses a snippet with the language's tree-sitter grammar
// and reports an error when the parse tree contains ERROR nodes. Go
// snippets are usually fragments without a package clause, so a failed
// parse is retried inside a synthetic function body before being
// counted as a real syntax problem.
func checkSyntax(ctx context.Context, language, code string) error {
	g, ok := grammars[strings.ToLower(language)]
	if !ok {
		return nil
	}

	clean, err := parseClean(ctx, g.language, code)
	if err != nil {
		return err
	}
	if clean {
		return nil
	}

	if g.ext == ".go" && !strings.Contains(code, "package ") {
		wrapped := "package main\n\nfunc example() {\n" + code + "\n}\n"
		clean, err = parseClean(ctx, g.language, wrapped)
		if err != nil {
			return err
		}
		if clean {
			return nil
		}
	}

	return fmt.Errorf("%s snippet does not parse", language)
}

func parseClean(ctx context.Context, lang *sitter.Language, code string) (bool, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, []byte(code))
	if err != nil {
		return false, fmt.Errorf("parse snippet: %w", err)
	}
	defer tree.Close()

	return !tree.RootNode().HasError(), nil
}
