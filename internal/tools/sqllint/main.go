// sqllint walks Go sources and verifies that every string literal containing
// SQL starts with a `--sql <uuid>` audit marker, so each query the bot can run
// is traceable in logs and code review.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	sqlKeywordPattern = regexp.MustCompile(`(?i)\b(select|insert|update|delete|with)\b`)
	auditMarkerLine   = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

type finding struct {
	file     string
	constant string
	line     int
}

func main() {
	flag.Parse()
	targets := flag.Args()
	if len(targets) == 0 {
		targets = []string{"."}
	}

	findings, err := lintTargets(targets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
		os.Exit(1)
	}
	if len(findings) > 0 {
		fmt.Fprintln(os.Stderr, "sqllint: SQL literals without audit markers")
		for _, f := range findings {
			fmt.Fprintf(os.Stderr, "  %s:%d %s\n", f.file, f.line, f.constant)
		}
		os.Exit(1)
	}
}

func lintTargets(targets []string) ([]finding, error) {
	var findings []finding
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if filepath.Ext(target) == ".go" {
				fs, err := lintFile(target)
				if err != nil {
					return nil, err
				}
				findings = append(findings, fs...)
			}
			continue
		}
		err = filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			fs, err := lintFile(path)
			if err != nil {
				return err
			}
			findings = append(findings, fs...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return findings, nil
}

func lintFile(path string) ([]finding, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}
	var findings []finding
	ast.Inspect(file, func(n ast.Node) bool {
		spec, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for _, value := range spec.Values {
			lit, ok := value.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				continue
			}
			raw, err := unquote(lit.Value)
			if err != nil || !sqlKeywordPattern.MatchString(raw) {
				continue
			}
			if !auditMarkerLine.MatchString(firstLine(raw)) {
				findings = append(findings, finding{
					file:     path,
					constant: specNames(spec),
					line:     fset.Position(lit.Pos()).Line,
				})
			}
		}
		return true
	})
	return findings, nil
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if len(v) == 0 {
		return v, nil
	}
	if v[0] == '`' {
		return v[1 : len(v)-1], nil
	}
	return strconv.Unquote(v)
}

func specNames(spec *ast.ValueSpec) string {
	parts := make([]string, 0, len(spec.Names))
	for _, ident := range spec.Names {
		if ident != nil {
			parts = append(parts, ident.Name)
		}
	}
	return strings.Join(parts, ",")
}
