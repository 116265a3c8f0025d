package i18n

import (
	"fmt"
	"path"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/guardbot/resources"
)

// English strings are the translation keys themselves; other languages ship
// as yaml files under resources/i18n.
var state = struct {
	mu           sync.RWMutex
	translations map[string]map[string]string
	loaded       map[string]bool
}{
	translations: make(map[string]map[string]string),
	loaded:       make(map[string]bool),
}

func load(lang string) {
	data, err := resources.FS.ReadFile(path.Join("i18n", fmt.Sprintf("%s.yml", lang)))
	if err != nil {
		log.WithError(err).WithField("language", lang).Errorln("cant load i18n")
		state.loaded[lang] = true
		return
	}
	translations := make(map[string]string)
	if err := yaml.Unmarshal(data, &translations); err != nil {
		log.WithError(err).WithField("language", lang).Errorln("cant unmarshal i18n")
		state.loaded[lang] = true
		return
	}
	state.translations[lang] = translations
	state.loaded[lang] = true
}

func Get(key, lang string) string {
	if "en" == lang || lang == "" {
		return key
	}
	state.mu.Lock()
	if !state.loaded[lang] {
		load(lang)
	}
	res, ok := state.translations[lang][key]
	state.mu.Unlock()
	if ok {
		return res
	}
	log.Tracef(`no %s translation for key %q`, lang, key)
	return key
}

// GetLanguagesList returns the available languages, english included.
func GetLanguagesList() []string {
	languages := []string{"en"}
	entries, err := resources.FS.ReadDir("i18n")
	if err != nil {
		log.WithError(err).Errorln("cant list i18n resources")
		return languages
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".yml") {
			continue
		}
		languages = append(languages, strings.TrimSuffix(name, ".yml"))
	}
	return languages
}
