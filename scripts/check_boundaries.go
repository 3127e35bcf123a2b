package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "assembly"

var infrastructurePrefixes = []string{
	modulePath + "/internal/",
	modulePath + "/integrations/",
	modulePath + "/platform/",
}

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

func main() {
	violations := collectViolations("contexts")
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File == violations[j].File {
			if violations[i].Line == violations[j].Line {
				return violations[i].Import < violations[j].Import
			}
			return violations[i].Line < violations[j].Line
		}
		return violations[i].File < violations[j].File
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

// collectViolations walks contexts/<context>/<service>/<layer>/... and checks
// every non-test file against its layer's import rules.
func collectViolations(root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		normalized := filepath.ToSlash(path)
		parts := strings.Split(normalized, "/")
		if len(parts) < 4 || parts[0] != "contexts" {
			return nil
		}

		servicePrefix := fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[1], parts[2])
		violations = append(violations, validateFile(path, normalized, parts[3], servicePrefix)...)
		return nil
	})

	return violations
}

func validateFile(path string, normalizedPath string, layer string, servicePrefix string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: normalizedPath, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		report := func(rule string) {
			violations = append(violations, violation{
				File:   normalizedPath,
				Line:   fset.Position(imp.Pos()).Line,
				Import: importPath,
				Rule:   rule,
			})
		}

		if strings.HasPrefix(importPath, modulePath+"/contexts/") && !hasPrefix(importPath, servicePrefix) {
			report("cross-module imports are forbidden")
		}
		for _, rule := range layerRules(layer, importPath, servicePrefix) {
			report(rule)
		}
	}
	return violations
}

// layerRules returns the rules importPath breaks inside layer. Adapters and
// the module root may import anything within the service.
func layerRules(layer string, importPath string, servicePrefix string) []string {
	var allowed []string
	switch layer {
	case "domain":
		allowed = []string{servicePrefix + "/domain"}
	case "ports":
		allowed = []string{servicePrefix + "/domain", modulePath + "/contracts"}
	case "application":
		allowed = []string{
			servicePrefix + "/application",
			servicePrefix + "/domain",
			servicePrefix + "/ports",
			modulePath + "/contracts",
		}
	case "transport":
		allowed = []string{}
	default:
		return nil
	}

	var rules []string
	if strings.Contains(importPath, "/adapters/") {
		rules = append(rules, layer+" must not import adapters")
	}
	if isAllowed(importPath, infrastructurePrefixes) {
		rules = append(rules, layer+" must not import runtime infrastructure")
	}
	if !isStdlib(importPath) && !isAllowed(importPath, allowed) {
		rules = append(rules, layer+" import is outside explicit allowlist")
	}
	return rules
}

func hasPrefix(path string, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, allowedPrefixes []string) bool {
	for _, p := range allowedPrefixes {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func isStdlib(importPath string) bool {
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
