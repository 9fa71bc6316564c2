// Package engine содержит чистые операции над определениями workflow.
//
// Включает:
//   - validate.go    — проверка определения перед выполнением
//   - combinators.go — композиция workflow (Sequence, WithVerification)
//   - template.go    — рендеринг Go templates ({{ .Inputs.x }}) и условия шагов
//
// Engine не выполняет шаги: это делает пакет executor.
package engine
