package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/livetodo/internal/model"
	"github.com/idilsaglam/livetodo/internal/snapshot"
	"github.com/idilsaglam/livetodo/internal/ui"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{
		"XDG_CONFIG_HOME", "LIVETODO_TOKEN", "LIVETODO_CONFIG_DIR",
		"LIVETODO_URL", "LIVETODO_ANON_KEY", "SUPABASE_URL", "SUPABASE_ANON_KEY",
		"LIVETODO_BACKEND", "LIVETODO_THEME", "LIVETODO_SQLITE_PATH",
		"LIVETODO_LOG_FILE", "LIVETODO_METRICS_ADDR", "LIVETODO_DEBUG",
	} {
		t.Setenv(k, "")
	}
	t.Cleanup(func() { _ = ui.SetTheme("classic") })
}

func execIn(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errb bytes.Buffer
	code := Execute(context.Background(), args, strings.NewReader(stdin), &out, &errb)
	return result{code: code, stdout: out.String(), stderr: errb.String()}
}

// todo runs against a sqlite backend in dir with the plain theme.
func todo(t *testing.T, dir string, args ...string) result {
	t.Helper()
	args = append(args, "--config-dir", dir, "--backend", "sqlite", "--theme", "mono")
	return execIn(t, "", args...)
}

func TestAddListToggleEditRemove(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	r := todo(t, dir, "add", "Buy", "milk")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Equal(t, "x added #1 Buy milk\n", r.stdout)

	r = todo(t, dir, "add", "Call mom")
	require.Equal(t, ExitOK, r.code, r.stderr)

	r = todo(t, dir, "done", "1")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "done #1 Buy milk")

	r = todo(t, dir, "ls")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "#1 [x] Buy milk")
	assert.Contains(t, r.stdout, "#2 [ ] Call mom")
	assert.Contains(t, r.stdout, "x 1  - 1  Total 2")
	assert.Less(t, strings.Index(r.stdout, "Buy milk"), strings.Index(r.stdout, "Call mom"))

	r = todo(t, dir, "edit", "2", "Call", "dad")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "edited #2 Call dad")

	r = todo(t, dir, "done", "1")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "reopened #1")

	r = todo(t, dir, "rm", "1")
	require.Equal(t, ExitOK, r.code, r.stderr)

	r = todo(t, dir, "ls")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.NotContains(t, r.stdout, "#1 ")
	assert.Contains(t, r.stdout, "#2 [ ] Call dad")
	assert.Contains(t, r.stdout, "Total 1")
}

func TestListGrouped(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	todo(t, dir, "add", "a")
	todo(t, dir, "add", "b")
	todo(t, dir, "done", "2")

	r := todo(t, dir, "ls", "--group")
	require.Equal(t, ExitOK, r.code, r.stderr)
	pending := strings.Index(r.stdout, "Pending")
	done := strings.Index(r.stdout, "Done")
	require.True(t, pending >= 0 && done >= 0, r.stdout)
	assert.Less(t, pending, strings.Index(r.stdout, "#1 [ ] a"))
	assert.Less(t, done, strings.Index(r.stdout, "#2 [x] b"))
}

func TestUsageErrors(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	for _, args := range [][]string{
		{"add"},
		{"add", "   "},
		{"done"},
		{"done", "abc"},
		{"rm", "0"},
		{"edit", "1"},
		{"bogus"},
		{"ls", "--nope"},
	} {
		r := todo(t, dir, args...)
		assert.Equal(t, ExitUsage, r.code, "args %v", args)
		assert.Contains(t, r.stderr, "todo --help", "args %v", args)
	}
}

func TestUnknownThemeIsUsageError(t *testing.T) {
	isolate(t)
	r := execIn(t, "", "ls", "--config-dir", t.TempDir(), "--backend", "sqlite", "--theme", "pastel")
	assert.Equal(t, ExitUsage, r.code)
	assert.Contains(t, r.stderr, `unknown theme "pastel"`)
	assert.Empty(t, r.stdout)
}

func TestMissingIDFails(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	r := todo(t, dir, "done", "9")
	assert.Equal(t, ExitError, r.code)
	assert.Contains(t, r.stderr, "no todo #9")
	assert.Contains(t, r.stderr, "todo ls")

	r = todo(t, dir, "edit", "9", "x")
	assert.Equal(t, ExitError, r.code)
	assert.Contains(t, r.stderr, "no todo #9")
}

func TestSupabaseBackendNeedsURL(t *testing.T) {
	isolate(t)
	r := execIn(t, "", "ls", "--config-dir", t.TempDir())
	assert.Equal(t, ExitError, r.code)
	assert.Contains(t, r.stderr, "url is required")
}

func TestExportImport(t *testing.T) {
	isolate(t)
	src, dst := t.TempDir(), t.TempDir()
	file := filepath.Join(t.TempDir(), "snap.json")

	todo(t, src, "add", "one")
	todo(t, src, "add", "two")
	todo(t, src, "done", "2")

	r := todo(t, src, "export", "--out", file)
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "exported 2 todos")

	saved, err := snapshot.Load(file)
	require.NoError(t, err)
	assert.Equal(t, []model.Todo{{ID: 1, Task: "one"}, {ID: 2, Task: "two", Done: true}}, saved)

	r = todo(t, dst, "add", "existing")
	require.Equal(t, ExitOK, r.code, r.stderr)
	r = todo(t, dst, "import", "--file", file)
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "imported 2 todos")

	r = todo(t, dst, "ls")
	assert.Contains(t, r.stdout, "#1 [ ] existing")
	assert.Contains(t, r.stdout, "#2 [ ] one")
	assert.Contains(t, r.stdout, "#3 [x] two")
}

func jwt(t *testing.T, claims map[string]any) string {
	t.Helper()
	b, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"none"}`)) + "." + enc.EncodeToString(b) + ".sig"
}

func TestAuthFlow(t *testing.T) {
	isolate(t)
	exp := time.Now().Add(time.Hour).Unix()
	tok := jwt(t, map[string]any{"sub": "user-1", "exp": exp})

	r := execIn(t, "", "auth", "status", "--theme", "mono")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "not logged in")

	r = execIn(t, "", "auth", "whoami", "--theme", "mono")
	assert.Equal(t, ExitUsage, r.code)

	r = execIn(t, "Bearer "+tok+"\n", "auth", "login", "--theme", "mono")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "logged in")

	r = execIn(t, "", "auth", "status", "--theme", "mono")
	assert.Contains(t, r.stdout, "source: file")
	assert.Contains(t, r.stdout, time.Unix(exp, 0).UTC().Format(time.RFC3339))

	r = execIn(t, "", "auth", "whoami", "--theme", "mono")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, `sub: "user-1"`)

	t.Setenv("LIVETODO_TOKEN", "opaque")
	r = execIn(t, "", "auth", "whoami", "--theme", "mono")
	assert.Contains(t, r.stdout, "Opaque token")
	r = execIn(t, "", "auth", "logout", "--theme", "mono")
	assert.Contains(t, r.stdout, "nothing to delete")

	t.Setenv("LIVETODO_TOKEN", "")
	r = execIn(t, "", "auth", "logout", "--theme", "mono")
	require.Equal(t, ExitOK, r.code, r.stderr)
	r = execIn(t, "", "auth", "status", "--theme", "mono")
	assert.Contains(t, r.stdout, "not logged in")
}

func TestVersion(t *testing.T) {
	isolate(t)
	r := execIn(t, "", "version")
	assert.Equal(t, ExitOK, r.code)
	assert.Equal(t, "todo dev\n", r.stdout)
}

func TestEventLine(t *testing.T) {
	require.NoError(t, ui.SetTheme("mono"))
	t.Cleanup(func() { _ = ui.SetTheme("classic") })

	assert.Equal(t, "+ insert #3 milk", eventLine(model.Event{Type: model.EventInsert, New: &model.Todo{ID: 3, Task: "milk"}}))
	assert.Equal(t, "~ update #3 [x] milk", eventLine(model.Event{Type: model.EventUpdate, New: &model.Todo{ID: 3, Task: "milk", Done: true}}))
	assert.Equal(t, "- delete #3", eventLine(model.Event{Type: model.EventDelete, Old: &model.Todo{ID: 3}}))
	assert.Equal(t, "? TRUNCATE", eventLine(model.Event{Type: "TRUNCATE"}))
}
