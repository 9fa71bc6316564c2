package steps

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/adws/internal/proc"
)

// Config — зависимости стандартных функций шагов.
type Config struct {
	// Runner — запуск внешних процессов. По умолчанию proc.ExecRunner.
	Runner proc.Runner

	// Shell — интерпретатор для shell-шагов (по умолчанию "sh").
	Shell string

	// Dir — рабочая директория команд и базовый путь для read_files.
	Dir string

	// Agent — настройки CLI агента.
	Agent AgentConfig
}

// Registry — реестр функций шагов.
//
// Позволяет регистрировать и получать Function по имени.
// Потокобезопасен.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		functions: make(map[string]Function),
	}
}

// DefaultRegistry создаёт реестр со всеми стандартными функциями:
// shell, agent, read_files, transform, delay, http.
func DefaultRegistry(cfg Config) *Registry {
	if cfg.Runner == nil {
		cfg.Runner = proc.NewExecRunner()
	}

	r := NewRegistry()
	r.Register(NewShellFunction(cfg.Runner, cfg.Shell, cfg.Dir))
	r.Register(NewAgentFunction(FunctionAgent, "", cfg.Runner, cfg.Agent))
	r.Register(NewReadFilesFunction(cfg.Dir))
	r.Register(NewTransformFunction())
	r.Register(NewDelayFunction())
	r.Register(NewHTTPFunction(nil))
	return r
}

// Register регистрирует функцию в реестре.
// Если функция с таким именем уже существует, она будет перезаписана.
func (r *Registry) Register(fn Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[fn.Name()] = fn
}

// Get возвращает функцию по имени.
// Возвращает ErrFunctionNotFound, если функция не найдена.
func (r *Registry) Get(name string) (Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, exists := r.functions[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}

	return fn, nil
}

// Has проверяет, зарегистрирована ли функция.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.functions[name]
	return exists
}

// Names возвращает отсортированный список зарегистрированных функций.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.functions))
	for n := range r.functions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Count возвращает количество зарегистрированных функций.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.functions)
}

// Unregister удаляет функцию из реестра.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.functions, name)
}
