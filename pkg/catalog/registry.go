package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// BranchCatalogID is the id of the branch-audit question catalog
const BranchCatalogID = "branch"

// ErrUnknownModule is returned when a module id or title is not registered
var ErrUnknownModule = errors.New("unknown questionnaire module")

//go:embed data/*.yaml
var dataFS embed.FS

// catalogFile is the on-disk shape shared by module and question catalog files
type catalogFile struct {
	ID             string          `yaml:"id"`
	Title          string          `yaml:"title"`
	Filename       string          `yaml:"filename"`
	SpecialPhrases []SpecialPhrase `yaml:"special_phrases"`
	Questions      []yaml.Node     `yaml:"questions"`
}

// Registry holds every loaded module and the branch question catalog
type Registry struct {
	modules map[string]*Module
	order   []string
	branch  *QuestionCatalog
}

var (
	defaultRegistry *Registry
	defaultErr      error
	defaultOnce     sync.Once
)

// Default returns the registry loaded from the embedded catalog files
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(dataFS, "data")
		if err != nil {
			defaultErr = err
			return
		}
		defaultRegistry, defaultErr = LoadFS(sub)
	})
	return defaultRegistry, defaultErr
}

// LoadFS parses every .yaml file at the root of fsys
func LoadFS(fsys fs.FS) (*Registry, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog files: %w", err)
	}
	sort.Strings(names)

	reg := &Registry{modules: make(map[string]*Module)}
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", name, err)
		}
		if err := reg.add(path.Base(name), data); err != nil {
			return nil, err
		}
	}

	if reg.branch == nil {
		return nil, fmt.Errorf("catalog %q not found", BranchCatalogID)
	}
	return reg, nil
}

func (r *Registry) add(name string, data []byte) error {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse catalog %s: %w", name, err)
	}

	if file.ID == BranchCatalogID {
		entries := make([]Entry, 0, len(file.Questions))
		for i := range file.Questions {
			var entry Entry
			if err := file.Questions[i].Decode(&entry); err != nil {
				return fmt.Errorf("catalog %s: question %d: %w", name, i+1, err)
			}
			entries = append(entries, entry)
		}
		r.branch = NewQuestionCatalog(file.ID, file.Title, entries, file.SpecialPhrases)
		return nil
	}

	module := &Module{ID: file.ID, Title: file.Title, Filename: file.Filename}
	for i := range file.Questions {
		var q Question
		if err := file.Questions[i].Decode(&q); err != nil {
			return fmt.Errorf("catalog %s: question %d: %w", name, i+1, err)
		}
		module.Questions = append(module.Questions, q)
	}
	if err := module.validate(); err != nil {
		return fmt.Errorf("catalog %s: %w", name, err)
	}
	if _, exists := r.modules[module.ID]; exists {
		return fmt.Errorf("catalog %s: duplicate module id %q", name, module.ID)
	}

	r.modules[module.ID] = module
	r.order = append(r.order, module.ID)
	return nil
}

// Module finds a module by id or title, ignoring case
func (r *Registry) Module(name string) (*Module, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if m, ok := r.modules[key]; ok {
		return m, nil
	}
	for _, id := range r.order {
		if strings.EqualFold(r.modules[id].Title, key) {
			return r.modules[id], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownModule, name)
}

// Modules returns all modules sorted by id
func (r *Registry) Modules() []*Module {
	modules := make([]*Module, 0, len(r.order))
	for _, id := range r.order {
		modules = append(modules, r.modules[id])
	}
	return modules
}

// Branch returns the branch-audit question catalog
func (r *Registry) Branch() *QuestionCatalog {
	return r.branch
}
