// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// ContractsCSV is a spreadsheet export of the contracts dataset. Its headers
// use labels rather than column names and include one column the dataset
// does not have.
const ContractsCSV = `Número,Ano,Processo,NUP,Objeto,Observação
12,2024,PE 90012/2024,62055.000123/2024-11,Aquisição de material de limpeza,ok
7,2025,DE 90007/2025,62055.000777/2025-02,Serviço de manutenção predial,revisar
`

// SetupTestProject creates a temporary base directory holding an import
// source file, contratos.csv. It returns the base directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "contratos.csv"), []byte(ContractsCSV), 0o600); err != nil {
		t.Fatalf("failed to create contratos.csv: %v", err)
	}
	return tmpDir
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
