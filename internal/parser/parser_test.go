package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semdex/pkg/types"
)

func parseSource(t *testing.T, src string, lang types.Language) *Result {
	t.Helper()
	result, err := New().Parse(context.Background(), []byte(src), lang)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func TestParsePython_SingleFunction(t *testing.T) {
	result := parseSource(t, "def foo(): return 1\n", types.LangPython)

	require.Len(t, result.Nodes, 1)
	node := result.Nodes[0]
	assert.Equal(t, "function_definition", node.Type)
	assert.Equal(t, "foo", node.Symbol)
	assert.Equal(t, "0", node.Path)
	assert.Equal(t, 0, node.Span.StartLine)
	assert.Empty(t, node.Children)
	assert.Zero(t, result.ErrorCount)
	assert.Contains(t, node.Snippet, "return 1")
}

func TestParsePython_ClassWithMethods(t *testing.T) {
	src := `import os

class Server:
    def start(self):
        pass

    def stop(self):
        pass

def helper():
    pass
`
	result := parseSource(t, src, types.LangPython)

	require.Len(t, result.Nodes, 2)

	class := result.Nodes[0]
	assert.Equal(t, "class_definition", class.Type)
	assert.Equal(t, "Server", class.Symbol)
	require.Len(t, class.Children, 2)
	assert.Equal(t, "start", class.Children[0].Symbol)
	assert.Equal(t, "0.0", class.Children[0].Path)
	assert.Equal(t, "stop", class.Children[1].Symbol)

	helper := result.Nodes[1]
	assert.Equal(t, "function_definition", helper.Type)
	assert.Equal(t, "helper", helper.Symbol)
	assert.Equal(t, "1", helper.Path)
}

func TestParsePython_EntryGuard(t *testing.T) {
	src := `def main():
    pass

if __name__ == "__main__":
    main()
`
	result := parseSource(t, src, types.LangPython)

	require.Len(t, result.Nodes, 2)
	entry := result.Nodes[1]
	assert.Equal(t, EntryPointType, entry.Type)
	assert.Equal(t, "__main__", entry.Symbol)
	assert.Empty(t, entry.Children)
}

func TestParsePython_DecoratedDefinition(t *testing.T) {
	src := `@app.route("/ping")
def ping():
    return "pong"
`
	result := parseSource(t, src, types.LangPython)

	require.Len(t, result.Nodes, 1)
	node := result.Nodes[0]
	// Type and symbol come from the inner definition, the snippet keeps
	// the decorator
	assert.Equal(t, "function_definition", node.Type)
	assert.Equal(t, "ping", node.Symbol)
	assert.Contains(t, node.Snippet, "@app.route")
	assert.Equal(t, 0, node.Span.StartLine)
	assert.Empty(t, node.Children)
}

func TestParseGo(t *testing.T) {
	src := `package server

import "fmt"

const defaultPort = 8080

type Handler struct {
	name string
}

func (h *Handler) Serve() {
	fmt.Println(h.name)
}

func New(name string) *Handler {
	return &Handler{name: name}
}
`
	result := parseSource(t, src, types.LangGo)

	require.Len(t, result.Nodes, 4)
	assert.Equal(t, "const_declaration", result.Nodes[0].Type)
	assert.Equal(t, "defaultPort", result.Nodes[0].Symbol)
	assert.Equal(t, "type_declaration", result.Nodes[1].Type)
	assert.Equal(t, "Handler", result.Nodes[1].Symbol)
	assert.Equal(t, "method_declaration", result.Nodes[2].Type)
	assert.Equal(t, "Serve", result.Nodes[2].Symbol)
	assert.Equal(t, "function_declaration", result.Nodes[3].Type)
	assert.Equal(t, "New", result.Nodes[3].Symbol)
}

func TestParseTypeScript(t *testing.T) {
	src := `interface Task {
  id: number;
}

export class Runner {
  run(task: Task): void {}
}

const limit = 10;
`
	result := parseSource(t, src, types.LangTypeScript)

	require.Len(t, result.Nodes, 3)
	assert.Equal(t, "interface_declaration", result.Nodes[0].Type)
	assert.Equal(t, "Task", result.Nodes[0].Symbol)

	// The export wrapper resolves to the class inside
	exported := result.Nodes[1]
	assert.Equal(t, "class_declaration", exported.Type)
	assert.Equal(t, "Runner", exported.Symbol)
	require.Len(t, exported.Children, 1)
	assert.Equal(t, "run", exported.Children[0].Symbol)

	assert.Equal(t, "lexical_declaration", result.Nodes[2].Type)
	assert.Equal(t, "limit", result.Nodes[2].Symbol)
}

func TestParseJavaScript(t *testing.T) {
	src := `function greet(name) {
  return "hi " + name;
}

class Widget {
  render() {}
}
`
	result := parseSource(t, src, types.LangJavaScript)

	require.Len(t, result.Nodes, 2)
	assert.Equal(t, "greet", result.Nodes[0].Symbol)
	assert.Equal(t, "Widget", result.Nodes[1].Symbol)
	require.Len(t, result.Nodes[1].Children, 1)
	assert.Equal(t, "render", result.Nodes[1].Children[0].Symbol)
}

func TestParseJava(t *testing.T) {
	src := `package app;

public class Account {
    public Account() {}

    public void deposit(int amount) {}
}
`
	result := parseSource(t, src, types.LangJava)

	require.Len(t, result.Nodes, 1)
	class := result.Nodes[0]
	assert.Equal(t, "class_declaration", class.Type)
	assert.Equal(t, "Account", class.Symbol)
	require.Len(t, class.Children, 2)
	assert.Equal(t, "constructor_declaration", class.Children[0].Type)
	assert.Equal(t, "deposit", class.Children[1].Symbol)
}

func TestParseCSharp(t *testing.T) {
	src := `namespace Billing {
    public class Invoice {
        public void Send() {}
    }
}
`
	result := parseSource(t, src, types.LangCSharp)

	require.Len(t, result.Nodes, 1)
	ns := result.Nodes[0]
	assert.Equal(t, "namespace_declaration", ns.Type)
	assert.Equal(t, "Billing", ns.Symbol)
	require.Len(t, ns.Children, 1)
	assert.Equal(t, "Invoice", ns.Children[0].Symbol)
	require.Len(t, ns.Children[0].Children, 1)
	assert.Equal(t, "Send", ns.Children[0].Children[0].Symbol)
}

func TestParseSyntaxError(t *testing.T) {
	src := `def ok():
    pass

def broken(:
`
	result := parseSource(t, src, types.LangPython)

	// The well-formed declaration still comes through
	require.NotEmpty(t, result.Nodes)
	assert.Equal(t, "ok", result.Nodes[0].Symbol)
	assert.Greater(t, result.ErrorCount, 0)
}

func TestParseUnsupportedLanguage(t *testing.T) {
	_, err := New().Parse(context.Background(), []byte("hello"), types.LangUnknown)
	assert.Error(t, err)
}

func TestParseEmptyFile(t *testing.T) {
	result := parseSource(t, "", types.LangPython)
	assert.Empty(t, result.Nodes)
	assert.Zero(t, result.ErrorCount)
}
