package quality

import (
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const modulePath = "github.com/jinga80/medical-law/"

// TestCodeFormatting verifies that every Go source file in the module is
// gofmt-clean. Directories starting with "_" or "." are ignored like the go tool does.
func TestCodeFormatting(t *testing.T) {
	if _, err := exec.LookPath("gofmt"); err != nil {
		t.Skip("gofmt not in PATH")
	}
	projectRoot, err := findProjectRoot()
	if err != nil {
		t.Fatalf("Failed to find project root: %v", err)
	}

	goFiles, err := sourceFiles(projectRoot)
	if err != nil {
		t.Fatalf("Failed to walk project directory: %v", err)
	}
	if len(goFiles) == 0 {
		t.Fatal("No Go files found in project")
	}

	var unformatted int
	for _, file := range goFiles {
		output, err := exec.Command("gofmt", "-l", file).Output()
		if err != nil {
			// gofmt returns non-zero on syntax errors
			t.Errorf("gofmt failed for %s: %v", file, err)
			continue
		}
		if len(output) > 0 {
			unformatted++
			t.Errorf("File %s is not gofmt-formatted", file)
		}
	}
	if unformatted > 0 {
		t.Log("Run 'go fmt ./...' to fix formatting")
	}
	t.Logf("Checked %d Go files", len(goFiles))
}

// TestLayering keeps state and rendering packages free of transport and
// composition concerns. Keys are package dirs under internal/, values are
// internal packages they must not import.
func TestLayering(t *testing.T) {
	forbidden := map[string][]string{
		"models": {"ws", "router", "store", "view", "manager", "server"},
		"sched":  {"ws", "router", "store", "view", "manager", "server"},
		"router": {"ws", "store", "view", "manager", "server"},
		"store":  {"ws", "router", "view", "manager", "server"},
		"view":   {"ws", "router", "store", "manager", "server"},
		"ws":     {"router", "store", "view", "manager", "server"},
	}
	projectRoot, err := findProjectRoot()
	if err != nil {
		t.Fatalf("Failed to find project root: %v", err)
	}
	for pkg, banned := range forbidden {
		files, err := filepath.Glob(filepath.Join(projectRoot, "internal", pkg, "*.go"))
		if err != nil {
			t.Fatal(err)
		}
		for _, file := range files {
			f, err := parser.ParseFile(token.NewFileSet(), file, nil, parser.ImportsOnly)
			if err != nil {
				t.Errorf("parse %s: %v", file, err)
				continue
			}
			for _, imp := range f.Imports {
				path, _ := strconv.Unquote(imp.Path.Value)
				for _, b := range banned {
					if path == modulePath+"internal/"+b {
						t.Errorf("%s imports %s", file, path)
					}
				}
			}
		}
	}
}

func sourceFiles(root string) ([]string, error) {
	var goFiles []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".go") {
			goFiles = append(goFiles, path)
		}
		return nil
	})
	return goFiles, err
}

// findProjectRoot finds the project root by looking for go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
