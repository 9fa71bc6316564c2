package workflows

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/shaiso/adws/internal/domain"
)

// definitionExts — расширения файлов определений в порядке поиска.
var definitionExts = []string{".yaml", ".yml"}

// Loader загружает workflow по имени.
//
// Порядок поиска: директория из Config.Dir, затем встроенные определения.
// Loader не кэширует результат: каждый Load возвращает новый Workflow.
type Loader struct {
	sources []fs.FS
	logger  *slog.Logger
}

// Config — конфигурация Loader.
type Config struct {
	// Dir — директория пользовательских определений (опционально).
	Dir string

	// Builtin — встроенные определения (по умолчанию Builtin()).
	// Тесты подставляют fstest.MapFS.
	Builtin fs.FS

	// Logger
	Logger *slog.Logger
}

// NewLoader создаёт Loader.
func NewLoader(cfg Config) *Loader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	builtin := cfg.Builtin
	if builtin == nil {
		builtin = Builtin()
	}

	var sources []fs.FS
	if cfg.Dir != "" {
		sources = append(sources, os.DirFS(cfg.Dir))
	}
	sources = append(sources, builtin)

	return &Loader{
		sources: sources,
		logger:  logger,
	}
}

// Load возвращает workflow по имени.
// Если определения нет — ErrWorkflowNotFound.
func (l *Loader) Load(name string) (*domain.Workflow, error) {
	return l.load(name, nil)
}

// LoadDispatchable загружает workflow и проверяет, что его можно вызывать напрямую.
func (l *Loader) LoadDispatchable(name string) (*domain.Workflow, error) {
	wf, err := l.Load(name)
	if err != nil {
		return nil, err
	}
	if !wf.Dispatchable {
		return nil, fmt.Errorf("%w: %s", ErrNotDispatchable, name)
	}
	return wf, nil
}

// Definition возвращает разобранное определение без сборки.
func (l *Loader) Definition(name string) (*Definition, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrWorkflowNotFound, name)
	}

	for _, src := range l.sources {
		for _, ext := range definitionExts {
			data, err := fs.ReadFile(src, name+ext)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("read workflow %s: %w", name, err)
			}

			def, err := Parse(data)
			if err != nil {
				return nil, fmt.Errorf("workflow %s: %w", name, err)
			}
			if def.Name != name {
				l.logger.Warn("workflow name differs from file name",
					"file", name+ext,
					"name", def.Name,
				)
				def.Name = name
			}
			return def, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, name)
}

// List возвращает имена всех доступных workflow (без дубликатов, по алфавиту).
func (l *Loader) List() ([]string, error) {
	seen := make(map[string]bool)
	for _, src := range l.sources {
		entries, err := fs.ReadDir(src, ".")
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("list workflows: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := path.Ext(e.Name())
			if !slices.Contains(definitionExts, ext) {
				continue
			}
			seen[strings.TrimSuffix(e.Name(), ext)] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// LoadAll загружает все доступные workflow.
func (l *Loader) LoadAll() ([]*domain.Workflow, error) {
	names, err := l.List()
	if err != nil {
		return nil, err
	}

	result := make([]*domain.Workflow, 0, len(names))
	for _, name := range names {
		wf, err := l.Load(name)
		if err != nil {
			return nil, err
		}
		result = append(result, wf)
	}
	return result, nil
}

// load собирает workflow, отслеживая цепочку sequence для обнаружения циклов.
func (l *Loader) load(name string, chain []string) (*domain.Workflow, error) {
	if slices.Contains(chain, name) {
		return nil, fmt.Errorf("%w: %s", ErrSequenceCycle, strings.Join(append(chain, name), " -> "))
	}

	def, err := l.Definition(name)
	if err != nil {
		return nil, err
	}

	chain = append(slices.Clone(chain), name)
	return def.Build(func(part string) (*domain.Workflow, error) {
		return l.load(part, chain)
	})
}

// validName отсекает пути: имя workflow — одно имя файла без расширения.
func validName(name string) bool {
	return name != "" && fs.ValidPath(name) && !strings.Contains(name, "/") && name != "."
}
