// Command depscheck fails when a simulation core package imports the
// presentation or process layers. The core must stay runnable headless.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

type packageInfo struct {
	ImportPath string
	Imports    []string
}

var corePackages = []string{
	"./internal/rng/...",
	"./internal/arena/...",
	"./internal/entity/...",
	"./internal/physics/...",
	"./internal/outcome/...",
	"./internal/combat/...",
	"./internal/economy/...",
	"./internal/booster/...",
	"./internal/round/...",
}

var forbiddenPrefixes = []string{
	"spinarena/server/internal/net",
	"spinarena/server/internal/session",
	"spinarena/server/internal/app",
	"spinarena/server/internal/config",
	"spinarena/server/internal/observability",
	"github.com/gorilla/",
	"net/http",
}

func main() {
	args := append([]string{"list", "-json"}, corePackages...)
	cmd := exec.Command("go", args...)
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	violations, err := findViolations(bytes.NewReader(output))
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: %v\n", err)
		os.Exit(1)
	}
	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func findViolations(r io.Reader) ([]string, error) {
	decoder := json.NewDecoder(r)
	var violations []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode package info: %w", err)
		}
		for _, imp := range pkg.Imports {
			for _, prefix := range forbiddenPrefixes {
				if strings.HasPrefix(imp, prefix) {
					violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
					break
				}
			}
		}
	}
	sort.Strings(violations)
	return violations, nil
}
