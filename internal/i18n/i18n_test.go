package i18n

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"testing"

	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/guardbot/resources"
)

func TestGetReturnsKeyForEnglish(t *testing.T) {
	t.Parallel()

	if got := Get("Only admins can do that.", "en"); got != "Only admins can do that." {
		t.Fatalf("unexpected english translation: %q", got)
	}
	if got := Get("Only admins can do that.", ""); got != "Only admins can do that." {
		t.Fatalf("empty language must behave as english: %q", got)
	}
}

func TestGetFallsBackToKeyForUnknownEntries(t *testing.T) {
	t.Parallel()

	if got := Get("some string nobody translated", "fa"); got != "some string nobody translated" {
		t.Fatalf("expected key fallback, got %q", got)
	}
	if got := Get("hello", "xx"); got != "hello" {
		t.Fatalf("expected key fallback for unknown language, got %q", got)
	}
}

func TestGetLanguagesListIncludesEnglishAndBundles(t *testing.T) {
	t.Parallel()

	languages := GetLanguagesList()
	hasEN, hasFA := false, false
	for _, lang := range languages {
		switch lang {
		case "en":
			hasEN = true
		case "fa":
			hasFA = true
		}
	}
	if !hasEN || !hasFA {
		t.Fatalf("expected en and fa in language list, got %v", languages)
	}
}

var formatVerbPattern = regexp.MustCompile(`%[#+\-0 ]*[0-9*.]*[a-zA-Z]`)

// Every bundled translation must keep the same format verbs as its key, in
// the same order, or runtime formatting will silently break.
func TestTranslationsKeepFormatVerbs(t *testing.T) {
	t.Parallel()

	entries, err := resources.FS.ReadDir("i18n")
	if err != nil {
		t.Fatalf("read i18n resources: %v", err)
	}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}

		data, err := resources.FS.ReadFile(path.Join("i18n", entry.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		translations := make(map[string]string)
		if err := yaml.Unmarshal(data, &translations); err != nil {
			t.Fatalf("unmarshal %s: %v", entry.Name(), err)
		}
		if len(translations) == 0 {
			t.Fatalf("%s has no translations", entry.Name())
		}

		for key, value := range translations {
			if value == "" {
				t.Errorf("%s: empty translation for %q", entry.Name(), key)
				continue
			}
			keyVerbs := formatVerbPattern.FindAllString(key, -1)
			valueVerbs := formatVerbPattern.FindAllString(value, -1)
			if fmt.Sprint(keyVerbs) != fmt.Sprint(valueVerbs) {
				t.Errorf("%s: format verbs differ for key %q: %v vs %v", entry.Name(), key, keyVerbs, valueVerbs)
			}
		}
	}
}
