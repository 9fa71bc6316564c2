package finalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shaiso/adws/internal/domain"
)

// Маркеры в notes задачи.
const (
	// MarkerFailed — задача упала в ADWS.
	MarkerFailed = "ADWS_FAILED"

	// MarkerNeedsHuman — задача требует ручного разбора.
	MarkerNeedsHuman = "needs_human"
)

// TimestampLayout — формат last_failure (UTC, секунды).
const TimestampLayout = "2006-01-02T15:04:05Z"

// Ключи полей метаданных в порядке записи.
const (
	fieldAttempt     = "attempt"
	fieldLastFailure = "last_failure"
	fieldErrorClass  = "error_class"
	fieldStep        = "step"
	fieldSummary     = "summary"
)

// ErrNoMetadata — в тексте нет строки ADWS_FAILED.
var ErrNoMetadata = errors.New("no failure metadata")

// FailureMetadata — структурированная запись о падении workflow.
type FailureMetadata struct {
	Attempt     int              `json:"attempt"`
	LastFailure time.Time        `json:"last_failure"`
	ErrorClass  domain.ErrorType `json:"error_class"`
	Step        string           `json:"step"`
	Summary     string           `json:"summary"`
}

// NewFailureMetadata строит метаданные из ошибки.
// attempt меньше 1 поднимается до 1; nil-ошибка превращается в
// infrastructure_failure "unknown failure".
func NewFailureMetadata(perr *domain.PipelineError, attempt int, now time.Time) FailureMetadata {
	if perr == nil {
		perr = domain.NewPipelineError("", domain.ErrorTypeInfrastructure, "unknown failure")
	}
	return FailureMetadata{
		Attempt:     max(attempt, 1),
		LastFailure: now.UTC().Truncate(time.Second),
		ErrorClass:  perr.Kind(),
		Step:        perr.StepName,
		Summary:     perr.Message,
	}
}

// Format кодирует метаданные в одну строку:
//
//	ADWS_FAILED|attempt=2|last_failure=2024-01-02T03:04:05Z|error_class=step_execution_failure|step=write_tests|summary=...
//
// '|' в значениях экранируется как '\|', переводы строк заменяются пробелами.
func (m FailureMetadata) Format() string {
	fields := []string{
		MarkerFailed,
		fieldAttempt + "=" + strconv.Itoa(max(m.Attempt, 1)),
		fieldLastFailure + "=" + m.LastFailure.UTC().Format(TimestampLayout),
		fieldErrorClass + "=" + escape(string(m.ErrorClass)),
		fieldStep + "=" + escape(m.Step),
		fieldSummary + "=" + escape(m.Summary),
	}
	return strings.Join(fields, "|")
}

// String реализует fmt.Stringer.
func (m FailureMetadata) String() string {
	return m.Format()
}

// ParseMetadata находит в тексте строку ADWS_FAILED и декодирует её.
// Неизвестные поля игнорируются.
func ParseMetadata(text string) (FailureMetadata, error) {
	var line string
	for _, l := range strings.Split(text, "\n") {
		if i := strings.Index(l, MarkerFailed+"|"); i >= 0 {
			line = l[i:]
			break
		}
	}
	if line == "" {
		return FailureMetadata{}, ErrNoMetadata
	}

	var m FailureMetadata
	for _, field := range splitEscaped(line)[1:] {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case fieldAttempt:
			n, err := strconv.Atoi(value)
			if err != nil {
				return FailureMetadata{}, fmt.Errorf("parse %s: %w", fieldAttempt, err)
			}
			m.Attempt = n
		case fieldLastFailure:
			t, err := time.Parse(TimestampLayout, value)
			if err != nil {
				return FailureMetadata{}, fmt.Errorf("parse %s: %w", fieldLastFailure, err)
			}
			m.LastFailure = t
		case fieldErrorClass:
			m.ErrorClass = domain.ErrorType(value)
		case fieldStep:
			m.Step = value
		case fieldSummary:
			m.Summary = value
		}
	}
	return m, nil
}

var escaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

func escape(s string) string {
	return escaper.Replace(s)
}

// splitEscaped делит строку по '|', пропуская экранированные '\|'.
func splitEscaped(s string) []string {
	var (
		parts []string
		cur   strings.Builder
	)
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == '|':
			cur.WriteByte('|')
			i++
		case s[i] == '|':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(s[i])
		}
	}
	return append(parts, cur.String())
}
