package domain

import (
	"maps"
	"reflect"
	"time"
)

// Step — одна единица работы в workflow.
//
// Step — неизменяемое описание: оно создаётся один раз (вручную в определении
// workflow или комбинатором) и дальше только читается. Комбинаторы разделяют
// один и тот же *Step между несколькими workflow, поэтому изменять поля
// после создания нельзя.
type Step struct {
	// Name — уникальное имя шага в рамках workflow.
	Name string `json:"name" yaml:"name"`

	// Function — символическое имя функции, которую executor найдёт в реестре.
	// Игнорируется, если Shell == true.
	Function string `json:"function,omitempty" yaml:"function,omitempty"`

	// AlwaysRun — шаг выполняется даже после падения предыдущего шага.
	// Используется для cleanup и проверок, которые должны отработать всегда.
	AlwaysRun bool `json:"always_run,omitempty" yaml:"always_run,omitempty"`

	// MaxAttempts — количество попыток (включая первую). 0 трактуется как 1.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`

	// RetryDelaySeconds — пауза между попытками. После последней попытки не применяется.
	RetryDelaySeconds float64 `json:"retry_delay_seconds,omitempty" yaml:"retry_delay_seconds,omitempty"`

	// Shell — вместо Function выполняется Command как subprocess.
	Shell bool `json:"shell,omitempty" yaml:"shell,omitempty"`

	// Command — команда для shell-шага.
	Command string `json:"command,omitempty" yaml:"command,omitempty"`

	// Output — ключ, под которым результат шага попадёт в WorkflowContext.Outputs.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// InputFrom — маппинг {ключ output предыдущего шага → имя входа этого шага}.
	InputFrom map[string]string `json:"input_from,omitempty" yaml:"input_from,omitempty"`

	// Params — параметры функции шага (шаблон промпта, mappings, пути файлов).
	// Строковые значения рендерятся как Go templates перед вызовом функции.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`

	// Condition — предикат над контекстом. Если вернул false, шаг пропускается.
	Condition Condition `json:"-" yaml:"-"`
}

// Attempts возвращает нормализованное количество попыток (минимум 1).
func (s *Step) Attempts() int {
	if s.MaxAttempts < 1 {
		return 1
	}
	return s.MaxAttempts
}

// RetryDelay возвращает паузу между попытками.
func (s *Step) RetryDelay() time.Duration {
	if s.RetryDelaySeconds <= 0 {
		return 0
	}
	return time.Duration(s.RetryDelaySeconds * float64(time.Second))
}

// WithMaxAttempts возвращает копию шага с другим MaxAttempts.
// Остальные поля (включая InputFrom и Condition) переносятся без изменений.
func (s *Step) WithMaxAttempts(n int) *Step {
	cp := *s
	cp.MaxAttempts = n
	return &cp
}

// Equal сравнивает шаги структурно.
func (s *Step) Equal(other *Step) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Name == other.Name &&
		s.Function == other.Function &&
		s.AlwaysRun == other.AlwaysRun &&
		s.Attempts() == other.Attempts() &&
		s.RetryDelaySeconds == other.RetryDelaySeconds &&
		s.Shell == other.Shell &&
		s.Command == other.Command &&
		s.Output == other.Output &&
		maps.Equal(s.InputFrom, other.InputFrom) &&
		reflect.DeepEqual(s.Params, other.Params) &&
		sameCondition(s.Condition, other.Condition)
}

// sameCondition сравнивает условия: функции — по адресу, остальное — по значению.
func sameCondition(a, b Condition) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	if va.Kind() == reflect.Func {
		return va.Pointer() == vb.Pointer()
	}
	if va.Comparable() {
		return va.Equal(vb)
	}
	return reflect.DeepEqual(a, b)
}

// Workflow — упорядоченная последовательность шагов.
//
// Шаги выполняются в порядке списка. Workflow, созданные комбинаторами,
// помечаются как не-dispatchable: это промежуточные композиции, которые
// нельзя вызвать по имени из командного слоя.
type Workflow struct {
	// Name — имя workflow.
	Name string `json:"name" yaml:"name"`

	// Description — человекочитаемое описание.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Steps — шаги в порядке выполнения (разделяются по ссылке).
	Steps []*Step `json:"steps" yaml:"steps"`

	// Dispatchable — можно ли вызывать workflow напрямую по имени.
	Dispatchable bool `json:"dispatchable" yaml:"dispatchable"`
}

// StepNames возвращает имена шагов в порядке выполнения.
func (w *Workflow) StepNames() []string {
	names := make([]string, len(w.Steps))
	for i, s := range w.Steps {
		names[i] = s.Name
	}
	return names
}

// Step возвращает шаг по имени или nil.
func (w *Workflow) Step(name string) *Step {
	for _, s := range w.Steps {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// HasAlwaysRun проверяет, есть ли в workflow always-run шаги.
func (w *Workflow) HasAlwaysRun() bool {
	for _, s := range w.Steps {
		if s.AlwaysRun {
			return true
		}
	}
	return false
}
