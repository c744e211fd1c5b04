package wizard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStorageAccountNameAvailable(t *testing.T) {
	rm := &fakeRM{}
	p := &fakePrompter{}

	name, err := resolveStorageAccountName(context.Background(), rm, p, "pawstorage")

	require.NoError(t, err)
	assert.Equal(t, "pawstorage", name)
	assert.Zero(t, p.inputCalls)
}

func TestResolveStorageAccountNameTakenGetsSuffix(t *testing.T) {
	rm := &fakeRM{unavailable: map[string]bool{"pawstorage": true}}
	p := &fakePrompter{}

	name, err := resolveStorageAccountName(context.Background(), rm, p, "pawstorage")

	require.NoError(t, err)
	assert.Regexp(t, `^pawstorage[0-9]{3}$`, name)
	assert.Zero(t, p.inputCalls, "a taken name is suffixed, not re-prompted")
	assert.Equal(t, []string{"pawstorage", name}, rm.storageChecks)
}

func TestResolveStorageAccountNameInvalidReprompts(t *testing.T) {
	rm := &fakeRM{}
	p := &fakePrompter{inputs: []string{"pawstore1"}}

	name, err := resolveStorageAccountName(context.Background(), rm, p, "Bad Name!")

	require.NoError(t, err)
	assert.Equal(t, "pawstore1", name)
	assert.Equal(t, 1, p.inputCalls)
}

func TestResolveStorageAccountNameBudgetExhausted(t *testing.T) {
	rm := &fakeRM{}
	p := &fakePrompter{inputs: []string{"!", "!", "!", "!", "!"}}

	_, err := resolveStorageAccountName(context.Background(), rm, p, "")

	assert.Error(t, err)
}

func TestSuffixStorageNameKeepsPlatformLimit(t *testing.T) {
	long := "abcdefghijklmnopqrstuvwx" // 24 characters, the platform maximum
	suffixed := suffixStorageName(long)

	assert.Len(t, suffixed, 24)
	assert.Regexp(t, `^abcdefghijklmnopqrstu[0-9]{3}$`, suffixed)
}

func TestDeriveVMName(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		firstName string
		lastName  string
		expected  string
	}{
		{
			name:      "simple",
			prefix:    "PAW-",
			firstName: "John",
			lastName:  "Doe",
			expected:  "PAW-JohnDoe",
		},
		{
			name:      "strips special characters",
			prefix:    "PAW",
			firstName: "Mary Jane",
			lastName:  "O'Connor",
			expected:  "PAWMaryJaneOCon",
		},
		{
			name:      "truncated to computer name limit",
			prefix:    "PAW",
			firstName: "Maximiliane",
			lastName:  "Oberhausen",
			expected:  "PAWMaximilianeO",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, deriveVMName(tc.prefix, tc.firstName, tc.lastName))
			assert.LessOrEqual(t, len(deriveVMName(tc.prefix, tc.firstName, tc.lastName)), 15)
		})
	}
}

func writeTemplates(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(path.Join(dir, name), []byte(`{}`), 0o600))
	}
	return dir
}

func TestSelectTemplateSingleMatchConfirmed(t *testing.T) {
	dir := writeTemplates(t, "paw-core.json", "paw-sessionhost.json", "README.md")

	selected, err := selectTemplate(dir, "core", &fakePrompter{})

	require.NoError(t, err)
	assert.Equal(t, path.Join(dir, "paw-core.json"), selected)
}

func TestSelectTemplateDeclinedSuggestionFallsBack(t *testing.T) {
	dir := writeTemplates(t, "paw-core.json", "paw-sessionhost.json")
	p := &fakePrompter{confirms: []bool{false}, selects: []int{1}}

	selected, err := selectTemplate(dir, "core", p)

	require.NoError(t, err)
	assert.Equal(t, path.Join(dir, "paw-sessionhost.json"), selected)
}

func TestSelectTemplateNoHeuristicMatch(t *testing.T) {
	dir := writeTemplates(t, "alpha.json", "beta.json")
	p := &fakePrompter{selects: []int{1}}

	selected, err := selectTemplate(dir, "core", p)

	require.NoError(t, err)
	assert.Equal(t, path.Join(dir, "beta.json"), selected)
}

func TestSelectTemplateEmptyDirectory(t *testing.T) {
	dir := writeTemplates(t, "notes.txt")

	_, err := selectTemplate(dir, "core", &fakePrompter{})

	assert.ErrorContains(t, err, "no infrastructure templates")
}

func TestSelectHostTemplate(t *testing.T) {
	dir := writeTemplates(t, "paw-core.json", "paw-sessionhost.json")

	selected, err := SelectHostTemplate(dir, &fakePrompter{})

	require.NoError(t, err)
	assert.Equal(t, path.Join(dir, "paw-sessionhost.json"), selected)
}

func TestProbePrepScript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/prep.ps1" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	assert.NoError(t, probePrepScript(context.Background(), server.URL+"/prep.ps1"))
	assert.Error(t, probePrepScript(context.Background(), server.URL+"/missing.ps1"))
}
