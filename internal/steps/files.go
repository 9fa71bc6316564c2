package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FunctionReadFiles — функция чтения файлов для подготовки контекста агента.
const FunctionReadFiles = "read_files"

// ReadFilesFunction читает файлы, перечисленные в Params["paths"]
// и во входе "files".
//
// Output: map[путь]содержимое. Относительные пути считаются от базовой
// директории. Отсутствующий файл — ошибка, если Params["optional"] != true.
type ReadFilesFunction struct {
	dir string
}

// NewReadFilesFunction создаёт ReadFilesFunction с базовой директорией dir.
func NewReadFilesFunction(dir string) *ReadFilesFunction {
	return &ReadFilesFunction{dir: dir}
}

// Name возвращает имя функции.
func (f *ReadFilesFunction) Name() string {
	return FunctionReadFiles
}

// Run читает файлы.
func (f *ReadFilesFunction) Run(ctx context.Context, req *Request) (*Response, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	paths := GetParamStrings(req.Params, "paths")
	paths = append(paths, GetParamStrings(req.Inputs, "files")...)
	optional := GetParamBool(req.Params, "optional", false)

	contents := make(map[string]any, len(paths))
	for _, p := range paths {
		full := p
		if !filepath.IsAbs(full) && f.dir != "" {
			full = filepath.Join(f.dir, p)
		}

		data, err := os.ReadFile(full)
		if err != nil {
			if optional && os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		contents[p] = string(data)
	}

	return NewResponse(contents), nil
}
