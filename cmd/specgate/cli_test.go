package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	importName = ""
	routesMethod = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.HasPrefix(out, "specgate dev") {
		t.Errorf("output = %q", out)
	}
}

func TestValidateCommand(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "specgate.yaml", "logging:\n  level: warn\n")

	out, err := run(t, "--config", cfg, "validate")
	if err != nil {
		t.Fatalf("validate error: %v\n%s", err, out)
	}
	for _, name := range []string{"properties", "echo", "routes"} {
		if !strings.Contains(out, "ok   "+name) {
			t.Errorf("missing %s in output:\n%s", name, out)
		}
	}

	out, err = run(t, "--config", cfg, "validate", "core.echo", "missing.spec")
	if err == nil {
		t.Fatal("expected error for missing spec")
	}
	if !strings.Contains(out, "ok   core.echo") || !strings.Contains(out, "FAIL missing.spec") {
		t.Errorf("output:\n%s", out)
	}
}

func TestRoutesCommand(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "specgate.yaml", "logging:\n  level: warn\n")

	out, err := run(t, "--config", cfg, "routes", "--method", "GET")
	if err != nil {
		t.Fatalf("routes error: %v", err)
	}
	if !strings.Contains(out, "/api/echo/_introspect") {
		t.Errorf("expected introspection route in output:\n%s", out)
	}
	if strings.Contains(out, "POST") {
		t.Errorf("expected only GET routes:\n%s", out)
	}
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "specgate.yaml", "specs:\n  database: "+filepath.Join(dir, "specs.db")+"\n")
	doc := writeFile(t, dir, "orders.json", `{"methods": ["GET"], "url": {"paths": ["/orders"]}}`)

	out, err := run(t, "--config", cfg, "import", doc)
	if err != nil {
		t.Fatalf("import error: %v", err)
	}
	if !strings.HasPrefix(out, "imported orders (revision ") {
		t.Errorf("output = %q", out)
	}

	out, err = run(t, "--config", cfg, "import", "--name", "orders.v2", doc)
	if err != nil {
		t.Fatalf("import error: %v", err)
	}
	if !strings.HasPrefix(out, "imported orders.v2 ") {
		t.Errorf("output = %q", out)
	}

	if _, err := run(t, "--config", cfg, "import", doc); err != nil {
		t.Fatalf("second import error: %v", err)
	}
	out, err = run(t, "--config", cfg, "specs", "revisions", "orders")
	if err != nil {
		t.Fatalf("revisions error: %v", err)
	}
	if !strings.HasPrefix(out, "REVISION") || strings.Count(out, "\n") != 4 {
		t.Errorf("revisions output:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "specs", "delete", "orders")
	if err != nil || out != "deleted orders\n" {
		t.Fatalf("delete = %q, %v", out, err)
	}
	if _, err := run(t, "--config", cfg, "specs", "revisions", "orders"); err == nil {
		t.Error("expected no revisions after delete")
	}
	if _, err := run(t, "--config", cfg, "specs", "delete", "orders"); err == nil {
		t.Error("expected error deleting a missing spec")
	}

	bad := writeFile(t, dir, "bad.json", `{"methods": ["FETCH"], "url": {"paths": ["/bad"]}}`)
	if _, err := run(t, "--config", cfg, "import", bad); err == nil {
		t.Error("expected import of invalid spec to fail")
	}
}

func TestSpecsCommand(t *testing.T) {
	dir := t.TempDir()
	specDir := filepath.Join(dir, "specs")
	if err := os.Mkdir(specDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, specDir, "local.json", `{"methods": ["GET"], "url": {"paths": ["/local"]}}`)
	cfg := writeFile(t, dir, "specgate.yaml", "specs:\n  dirs: ["+specDir+"]\n")

	out, err := run(t, "--config", cfg, "specs")
	if err != nil {
		t.Fatalf("specs error: %v", err)
	}
	for _, name := range []string{"core.echo", "emptySpec", "local"} {
		if !strings.Contains(out, name+"\n") {
			t.Errorf("missing %s in output:\n%s", name, out)
		}
	}
}
