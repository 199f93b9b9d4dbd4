// Package resolve turns Go call expressions into resolved call sites.
//
// It is the semantic-resolution capability the rule engine consumes: given
// type-checked syntax, every call whose target is a concrete function or
// method becomes a call site. Calls through function values, builtins
// and conversions have no declaring type and are never reported.
//
// Naming convention:
//   - method:           "<pkgpath>.<Type>"  member "<Method>"
//   - package function: "<pkgpath>"         member "<Func>"
//   - caller:           receiver type of the enclosing method, otherwise
//     the package path
//
// Pointer receivers, generic instantiations and aliases all resolve to the
// declaring named type, so (*os/exec.Cmd).Run is "os/exec.Cmd" / "Run".
package resolve

import (
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ast/inspector"

	cwtypes "github.com/solatis/callwarden/internal/types"
)

// Callee resolves the declaring type and member name of call's target.
// ok is false when the target is not a statically known function or method.
func Callee(info *types.Info, call *ast.CallExpr) (calleeType, member string, ok bool) {
	id := calleeIdent(call.Fun)
	if id == nil {
		return "", "", false
	}

	fn, isFunc := info.Uses[id].(*types.Func)
	if !isFunc {
		return "", "", false
	}
	fn = fn.Origin()

	sig, isSig := fn.Type().(*types.Signature)
	if !isSig {
		return "", "", false
	}

	if recv := sig.Recv(); recv != nil {
		name, named := TypeName(recv.Type())
		if !named {
			return "", "", false
		}
		return name, fn.Name(), true
	}

	if fn.Pkg() == nil {
		return "", "", false
	}
	return fn.Pkg().Path(), fn.Name(), true
}

// calleeIdent finds the identifier naming the called function, looking
// through parentheses and explicit generic instantiation.
func calleeIdent(fun ast.Expr) *ast.Ident {
	fun = ast.Unparen(fun)
	switch f := fun.(type) {
	case *ast.IndexExpr:
		fun = ast.Unparen(f.X)
	case *ast.IndexListExpr:
		fun = ast.Unparen(f.X)
	}

	switch f := fun.(type) {
	case *ast.SelectorExpr:
		return f.Sel
	case *ast.Ident:
		return f
	default:
		return nil
	}
}

// TypeName returns the fully-qualified name of the named type behind t.
// Pointers are dereferenced and aliases resolved; unnamed types report false.
func TypeName(t types.Type) (string, bool) {
	t = types.Unalias(t)
	if ptr, isPtr := t.(*types.Pointer); isPtr {
		t = types.Unalias(ptr.Elem())
	}

	named, isNamed := t.(*types.Named)
	if !isNamed {
		return "", false
	}

	obj := named.Origin().Obj()
	if obj.Pkg() == nil {
		// Universe types such as error.
		return obj.Name(), true
	}
	return obj.Pkg().Path() + "." + obj.Name(), true
}

// Caller returns the calling type for code inside decl: the receiver type
// for methods, otherwise the package path. decl may be nil for package-level
// initializers.
func Caller(pkg *types.Package, info *types.Info, decl *ast.FuncDecl) string {
	if decl != nil && decl.Recv != nil {
		if fn, ok := info.Defs[decl.Name].(*types.Func); ok {
			if recv := fn.Type().(*types.Signature).Recv(); recv != nil {
				if name, named := TypeName(recv.Type()); named {
					return name
				}
			}
		}
	}
	if pkg == nil {
		return ""
	}
	return pkg.Path()
}

// Func is called once per resolved call site.
type Func func(site cwtypes.CallSite, call *ast.CallExpr)

// FileFilter reports whether a file should be walked.
type FileFilter func(file *ast.File) bool

// SkipGenerated is a FileFilter that skips generated files.
func SkipGenerated(file *ast.File) bool {
	return !ast.IsGenerated(file)
}

// Walk visits every call expression in the inspector's files and calls fn
// with its resolved call site. Site locations are the token.Pos of call.Fun.
// A nil filter walks every file.
func Walk(insp *inspector.Inspector, pkg *types.Package, info *types.Info, filter FileFilter, fn Func) {
	skip := make(map[*ast.File]bool)

	insp.WithStack([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return true
		}

		file, _ := stack[0].(*ast.File)
		if file != nil && filter != nil {
			skipped, seen := skip[file]
			if !seen {
				skipped = !filter(file)
				skip[file] = skipped
			}
			if skipped {
				return false
			}
		}

		call := n.(*ast.CallExpr)
		calleeType, member, ok := Callee(info, call)
		if !ok {
			return true
		}

		fn(cwtypes.CallSite{
			CallerType:   Caller(pkg, info, enclosingFunc(stack)),
			CalleeType:   calleeType,
			CalleeMember: member,
			Location:     call.Fun.Pos(),
		}, call)
		return true
	})
}

// enclosingFunc returns the outermost function declaration on the stack.
// Function literals belong to the declaration they appear in.
func enclosingFunc(stack []ast.Node) *ast.FuncDecl {
	for _, n := range stack {
		if decl, ok := n.(*ast.FuncDecl); ok {
			return decl
		}
	}
	return nil
}

// Position converts a site location produced by Walk into a file position.
func Position(fset *token.FileSet, site cwtypes.CallSite) token.Position {
	pos, ok := site.Location.(token.Pos)
	if !ok {
		return token.Position{}
	}
	return fset.Position(pos)
}
