package commands

import (
	"fmt"
	"strings"

	"github.com/shaiso/adws/internal/domain"
)

// CheckResult — результат одной проверки verify.
type CheckResult struct {
	Name    string            `json:"name"`
	Status  domain.StepStatus `json:"status"`
	Message string            `json:"message,omitempty"`
	Output  string            `json:"output,omitempty"`
}

// Passed возвращает true для успешной или пропущенной проверки.
func (c CheckResult) Passed() bool {
	return c.Status == domain.StepStatusSucceeded || c.Status == domain.StepStatusSkipped
}

// VerifyReport — сводка по проверкам: все ошибки always-run шагов сразу.
type VerifyReport struct {
	Success bool          `json:"success"`
	Total   int           `json:"total"`
	Failed  int           `json:"failed"`
	Checks  []CheckResult `json:"checks"`
}

// NewVerifyReport строит отчёт из результата команды.
// Ошибки берутся из Result.Failures: первая ошибка и приложенные
// always_run_failures.
func NewVerifyReport(res *Result) *VerifyReport {
	failures := make(map[string]*domain.PipelineError, len(res.Failures))
	for _, f := range res.Failures {
		failures[f.StepName] = f
	}

	report := &VerifyReport{Success: res.Success}
	for _, sr := range res.Steps {
		check := CheckResult{Name: sr.StepName, Status: sr.Status}
		if f, ok := failures[sr.StepName]; ok {
			check.Status = domain.StepStatusFailed
			check.Message = f.Message
			if out, ok := f.Context["output"].(string); ok {
				check.Output = out
			}
			delete(failures, sr.StepName)
		}
		report.Checks = append(report.Checks, check)
	}

	// Ошибки без записи шага (валидация, загрузка)
	for _, f := range res.Failures {
		if _, ok := failures[f.StepName]; !ok {
			continue
		}
		report.Checks = append(report.Checks, CheckResult{
			Name:    f.StepName,
			Status:  domain.StepStatusFailed,
			Message: f.Message,
		})
		delete(failures, f.StepName)
	}

	report.Total = len(report.Checks)
	for _, c := range report.Checks {
		if !c.Passed() {
			report.Failed++
		}
	}
	return report
}

// Summary — однострочная сводка.
func (r *VerifyReport) Summary() string {
	if r.Failed == 0 {
		return fmt.Sprintf("all %d checks passed", r.Total)
	}
	return fmt.Sprintf("%d checks failed", r.Failed)
}

// String — сводка и детали по каждой упавшей проверке.
func (r *VerifyReport) String() string {
	var b strings.Builder
	b.WriteString(r.Summary())
	for _, c := range r.Checks {
		if c.Passed() {
			continue
		}
		fmt.Fprintf(&b, "\n- %s: %s", c.Name, c.Status)
		if c.Message != "" {
			fmt.Fprintf(&b, ": %s", c.Message)
		}
		if c.Output != "" {
			for _, line := range strings.Split(strings.TrimRight(c.Output, "\n"), "\n") {
				fmt.Fprintf(&b, "\n    %s", line)
			}
		}
	}
	return b.String()
}
