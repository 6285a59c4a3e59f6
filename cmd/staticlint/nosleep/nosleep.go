// Package nosleep содержит анализатор, запрещающий time.Sleep в рабочем коде.
// Задержки и периодические задачи должны идти через планировщик, который подменяется в тестах.
package nosleep

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer сообщает о вызовах time.Sleep вне файлов _test.go
var Analyzer = &analysis.Analyzer{
	Name:     "nosleep",
	Doc:      "запрещает вызов time.Sleep вне тестов",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	insp.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call := n.(*ast.CallExpr)
		if strings.HasSuffix(pass.Fset.Position(call.Pos()).Filename, "_test.go") {
			return
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "Sleep" {
			return
		}
		fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
		if !ok || fn.Pkg() == nil || fn.Pkg().Path() != "time" {
			return
		}
		pass.Reportf(call.Pos(), "time.Sleep запрещён: используйте планировщик")
	})

	return nil, nil
}
