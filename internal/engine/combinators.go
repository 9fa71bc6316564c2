package engine

import (
	"fmt"

	"github.com/shaiso/adws/internal/domain"
)

// --- WithVerification ---

// verificationOptions — параметры WithVerification.
type verificationOptions struct {
	name           string
	description    string
	verifyAttempts int
}

// VerificationOption настраивает WithVerification.
type VerificationOption func(*verificationOptions)

// VerifyAttempts задаёт MaxAttempts для проверочного шага (по умолчанию 1).
func VerifyAttempts(n int) VerificationOption {
	return func(o *verificationOptions) {
		o.verifyAttempts = n
	}
}

// VerificationName переопределяет имя итогового workflow.
func VerificationName(name string) VerificationOption {
	return func(o *verificationOptions) {
		o.name = name
	}
}

// VerificationDescription переопределяет описание итогового workflow.
func VerificationDescription(description string) VerificationOption {
	return func(o *verificationOptions) {
		o.description = description
	}
}

// WithVerification строит workflow из двух шагов: main и его проверки.
//
// Проверочный шаг — копия verify, в которой изменён только MaxAttempts.
// Исходные шаги не меняются, main разделяется по ссылке.
// Результат не-dispatchable.
func WithVerification(main, verify *domain.Step, opts ...VerificationOption) *domain.Workflow {
	o := verificationOptions{
		name:           fmt.Sprintf("%s_with_verification", main.Name),
		description:    fmt.Sprintf("%s with verification", main.Name),
		verifyAttempts: 1,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &domain.Workflow{
		Name:         o.name,
		Description:  o.description,
		Steps:        []*domain.Step{main, verify.WithMaxAttempts(o.verifyAttempts)},
		Dispatchable: false,
	}
}

// --- Sequence ---

// sequenceOptions — параметры Sequence.
type sequenceOptions struct {
	name        string
	description string
}

// SequenceOption настраивает Sequence.
type SequenceOption func(*sequenceOptions)

// SequenceName переопределяет имя итогового workflow.
func SequenceName(name string) SequenceOption {
	return func(o *sequenceOptions) {
		o.name = name
	}
}

// SequenceDescription переопределяет описание итогового workflow.
func SequenceDescription(description string) SequenceOption {
	return func(o *sequenceOptions) {
		o.description = description
	}
}

// Sequence склеивает шаги двух workflow: сначала все шаги a, затем все шаги b.
//
// Шаги разделяются по ссылке, исходные workflow не меняются.
// Дубликаты имён не проверяются (это делает Validate перед выполнением).
// Результат всегда не-dispatchable.
func Sequence(a, b *domain.Workflow, opts ...SequenceOption) *domain.Workflow {
	o := sequenceOptions{
		name:        fmt.Sprintf("%s_then_%s", a.Name, b.Name),
		description: fmt.Sprintf("Sequence: %s -> %s", a.Name, b.Name),
	}
	for _, opt := range opts {
		opt(&o)
	}

	steps := make([]*domain.Step, 0, len(a.Steps)+len(b.Steps))
	steps = append(steps, a.Steps...)
	steps = append(steps, b.Steps...)

	return &domain.Workflow{
		Name:         o.name,
		Description:  o.description,
		Steps:        steps,
		Dispatchable: false,
	}
}

// SequenceAll склеивает несколько workflow слева направо.
// Возвращает nil для пустого списка и единственный workflow как есть.
func SequenceAll(wfs ...*domain.Workflow) *domain.Workflow {
	if len(wfs) == 0 {
		return nil
	}
	result := wfs[0]
	for _, wf := range wfs[1:] {
		result = Sequence(result, wf)
	}
	return result
}
